package kurpod

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/srv1n/kurpod/aead"
	"github.com/srv1n/kurpod/container"
	"github.com/srv1n/kurpod/fsindex"
	"github.com/srv1n/kurpod/internal/atomicfile"
	"github.com/srv1n/kurpod/internal/filelock"
	"github.com/srv1n/kurpod/internal/pathsafe"
	"github.com/srv1n/kurpod/kdf"
	"github.com/srv1n/kurpod/volume"
)

// VolumeKind identifies which of a container's two volumes an operation
// concerns. It is an alias of container.VolumeKind so callers never need to
// import the container package directly just to compare against
// ActiveVolume's return value.
type VolumeKind = container.VolumeKind

const (
	Standard = container.Standard
	Hidden   = container.Hidden
)

// Controller owns one open container file and the single volume currently
// unlocked against it. Exactly one volume (Standard or Hidden) is active at
// a time; switching requires Seal followed by a fresh Unlock.
type Controller struct {
	lock   *filelock.Lock
	active container.VolumeKind
	engine *volume.Engine
}

// Init creates a new container file at path with the given header
// passphrases and data region capacities, and unlocks the Standard volume.
// If hiddenPw is nil, the hidden header is filled with uniform random bytes
// indistinguishable from a real one without its own passphrase.
func Init(path string, stdPw, hiddenPw []byte, stdCapacity, hiddenCapacity int64) (*Controller, error) {
	if stdCapacity <= 0 || hiddenCapacity <= 0 {
		return nil, newError(KindInvalidArgument, "init", "", fmt.Errorf("%w: capacities must be positive", ErrInvalidArgument))
	}
	if len(stdPw) == 0 {
		return nil, newError(KindInvalidArgument, "init", "", fmt.Errorf("%w: standard passphrase must not be empty", ErrInvalidArgument))
	}

	layout := container.NewLayout(stdCapacity, hiddenCapacity)

	if err := stageSkeleton(path, layout, stdPw, hiddenPw); err != nil {
		return nil, newError(KindIO, "init", "", err)
	}

	c, _, err := unlockPath(path, stdPw)
	if err != nil {
		return nil, wrapErr("init", "", err)
	}
	return c, nil
}

// stageSkeleton builds the full container file content in memory and
// replaces it into place atomically, so a crash partway through never
// leaves a half-written container at the final path.
func stageSkeleton(path string, layout container.Layout, stdPw, hiddenPw []byte) error {
	skeleton := make([]byte, layout.TotalSize())
	w := &memWriterAt{buf: skeleton}

	stdID, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("generating standard volume id: %w", err)
	}
	stdDesc := container.Descriptor{
		Magic:     container.MagicTag,
		Kind:      container.Standard,
		VolumeID:  [16]byte(stdID),
		RegionOff: uint64(layout.StandardRegionOffset),
		RegionCap: uint64(layout.RegionCapacity(container.Standard)),
	}
	if _, err := container.WriteHeader(w, layout.StandardHeaderOffset, stdPw, kdf.DefaultParams(InFastKDFMode()), stdDesc); err != nil {
		return fmt.Errorf("writing standard header: %w", err)
	}

	if len(hiddenPw) == 0 {
		if err := container.WriteRandomHeader(w, layout.HiddenHeaderOffset); err != nil {
			return fmt.Errorf("writing decoy hidden header: %w", err)
		}
	} else {
		hiddenID, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("generating hidden volume id: %w", err)
		}
		hiddenDesc := container.Descriptor{
			Magic:     container.MagicTag,
			Kind:      container.Hidden,
			VolumeID:  [16]byte(hiddenID),
			RegionOff: uint64(layout.HiddenRegionOffset),
			RegionCap: uint64(layout.RegionCapacity(container.Hidden)),
		}
		if _, err := container.WriteHeader(w, layout.HiddenHeaderOffset, hiddenPw, kdf.DefaultParams(InFastKDFMode()), hiddenDesc); err != nil {
			return fmt.Errorf("writing hidden header: %w", err)
		}
	}

	return atomicfile.WriteFile(path, bytes.NewReader(skeleton))
}

// Unlock opens path, tries the given passphrase against both headers, and
// returns a Controller bound to whichever volume it opened. Both attempts
// always run and the decision between them is a plain boolean comparison
// made only after both derivations have completed, so the time Unlock takes
// does not depend on which header (if either) matched.
func Unlock(path string, pw []byte) (*Controller, error) {
	c, _, err := unlockPath(path, pw)
	if err != nil {
		return nil, wrapErr("unlock", "", err)
	}
	return c, nil
}

func unlockPath(path string, pw []byte) (*Controller, container.VolumeKind, error) {
	lock, err := filelock.Acquire(path)
	if err != nil {
		var openErr *fs.PathError
		if errors.As(err, &openErr) {
			return nil, 0, newError(KindIO, "unlock", "", err)
		}
		return nil, 0, newError(KindBusy, "unlock", "", fmt.Errorf("%w: %w", ErrBusy, err))
	}

	f := lock.File()
	if fi, statErr := f.Stat(); statErr != nil || fi.Size() < 2*container.HeaderSize {
		_ = lock.Release()
		if statErr != nil {
			return nil, 0, newError(KindIO, "unlock", "", statErr)
		}
		return nil, 0, newError(KindCorruption, "unlock", "", fmt.Errorf("container file too small to hold both headers"))
	}

	// Both headers are always attempted, and which one is used is decided
	// only once both derivations have finished, so Unlock's running time
	// does not betray which passphrase (if either) matched.
	stdKey, stdDesc, stdErr := container.TryOpenHeader(f, 0, pw)
	hiddenKey, hiddenDesc, hiddenErr := container.TryOpenHeader(f, container.HeaderSize, pw)

	var kind container.VolumeKind
	var key []byte
	var desc container.Descriptor
	switch {
	case stdErr == nil:
		kind, key, desc = container.Standard, stdKey, stdDesc
	case hiddenErr == nil:
		kind, key, desc = container.Hidden, hiddenKey, hiddenDesc
	default:
		_ = lock.Release()
		return nil, 0, newError(KindBadPassphrase, "unlock", "", ErrBadPassphrase)
	}

	engine, err := volume.Unlock(f, kind, desc.VolumeID, int64(desc.RegionOff), int64(desc.RegionCap), key)
	if err != nil {
		_ = lock.Release()
		return nil, 0, newError(KindCorruption, "unlock", "", err)
	}

	return &Controller{lock: lock, active: kind, engine: engine}, kind, nil
}

// PutFile streams r into path, replacing any existing content there.
func (c *Controller) PutFile(path string, r io.Reader, mimeHint string) error {
	if err := c.engine.Append(path, r, mimeHint, time.Now()); err != nil {
		return wrapVolumeErr("put_file", path, err)
	}
	return nil
}

// GetFileRange writes the plaintext bytes of path in [offset, offset+length)
// to w.
func (c *Controller) GetFileRange(path string, offset, length int64, w io.Writer) error {
	if offset < 0 || length < 0 {
		return newError(KindInvalidArgument, "get_file_range", path, ErrInvalidArgument)
	}
	if err := c.engine.ReadRange(path, offset, length, w); err != nil {
		return wrapVolumeErr("get_file_range", path, err)
	}
	return nil
}

// GetFile writes the whole of path's plaintext content to w.
func (c *Controller) GetFile(path string, w io.Writer) (fsindex.Record, error) {
	rec, err := c.Stat(path)
	if err != nil {
		return fsindex.Record{}, err
	}
	if err := c.GetFileRange(path, 0, rec.Size, w); err != nil {
		return fsindex.Record{}, err
	}
	return rec, nil
}

// Stat returns the record stored at path.
func (c *Controller) Stat(path string) (fsindex.Record, error) {
	rec, err := c.engine.Stat(path)
	if err != nil {
		return fsindex.Record{}, wrapVolumeErr("stat", path, err)
	}
	return rec, nil
}

// List returns every entry whose path has the given prefix.
func (c *Controller) List(prefix string) ([]fsindex.Entry, error) {
	entries, err := c.engine.List(prefix)
	if err != nil {
		return nil, wrapVolumeErr("list", prefix, err)
	}
	return entries, nil
}

// DeleteFile removes path from the active volume.
func (c *Controller) DeleteFile(path string) error {
	if err := c.engine.Delete(path); err != nil {
		return wrapVolumeErr("delete_file", path, err)
	}
	return nil
}

// RenameFile moves oldPath to newPath.
func (c *Controller) RenameFile(oldPath, newPath string) error {
	if err := c.engine.Rename(oldPath, newPath); err != nil {
		return wrapVolumeErr("rename_file", oldPath, err)
	}
	return nil
}

// Persist writes the current index to the data region's tail, if it has
// changed since the last persist.
func (c *Controller) Persist() error {
	if err := c.engine.PersistIndex(); err != nil {
		return wrapVolumeErr("persist", "", err)
	}
	return nil
}

// ActiveVolume reports which volume this controller unlocked.
func (c *Controller) ActiveVolume() container.VolumeKind {
	return c.active
}

// Seal persists any pending changes, zeroizes the volume key, and releases
// the container file and its advisory lock. The Controller must not be used
// afterward.
func (c *Controller) Seal() error {
	var result *multierror.Error

	if err := c.engine.Seal(); err != nil {
		result = multierror.Append(result, fmt.Errorf("persisting and zeroizing volume: %w", err))
	}
	if err := c.lock.Release(); err != nil {
		result = multierror.Append(result, fmt.Errorf("releasing container lock: %w", err))
	}

	if err := result.ErrorOrNil(); err != nil {
		return newError(KindIO, "seal", "", err)
	}
	return nil
}

func wrapVolumeErr(op, path string, err error) error {
	switch {
	case errors.Is(err, fsindex.ErrNotFound):
		return newError(KindNotFound, op, path, ErrNotFound)
	case errors.Is(err, fsindex.ErrExists):
		return newError(KindExists, op, path, ErrExists)
	case errors.Is(err, volume.ErrOutOfSpace):
		return newError(KindOutOfSpace, op, path, ErrOutOfSpace)
	case errors.Is(err, volume.ErrSealed):
		return newError(KindInvalidArgument, op, path, err)
	case errors.As(err, new(*pathsafe.ConstraintError)):
		return newError(KindInvalidArgument, op, path, fmt.Errorf("%w: %w", ErrInvalidArgument, err))
	case errors.Is(err, aead.ErrAuthFailed):
		return newError(KindCorruption, op, path, ErrCorruption)
	default:
		return newError(KindIO, op, path, err)
	}
}

// memWriterAt is a fixed-size in-memory io.WriterAt used to assemble a
// container skeleton before it is staged to disk in one atomic replace.
type memWriterAt struct{ buf []byte }

func (m *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, fmt.Errorf("write at %d:%d exceeds skeleton of size %d", off, off+int64(len(p)), len(m.buf))
	}
	copy(m.buf[off:], p)
	return len(p), nil
}
