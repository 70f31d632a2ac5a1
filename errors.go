package kurpod

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can branch on failure category
// without parsing message text.
type Kind int

const (
	KindUnknown Kind = iota
	KindBadPassphrase
	KindBusy
	KindNotFound
	KindExists
	KindOutOfSpace
	KindCorruption
	KindIO
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindBadPassphrase:
		return "bad_passphrase"
	case KindBusy:
		return "busy"
	case KindNotFound:
		return "not_found"
	case KindExists:
		return "exists"
	case KindOutOfSpace:
		return "out_of_space"
	case KindCorruption:
		return "corruption"
	case KindIO:
		return "io"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error is the error type every exported operation in this package returns
// on failure. Op names the failing operation, Path carries the volume-
// relative path involved, if any, and Err is the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("kurpod: %s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("kurpod: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Sentinel causes, matched with errors.Is against an *Error's wrapped Err
// or against the Kind of the Error itself via errors.As.
var (
	// ErrBadPassphrase covers every header-unlock failure: a wrong
	// passphrase, a decoy header, or a corrupt header block are all
	// indistinguishable on purpose, so they all surface as this one cause.
	ErrBadPassphrase = errors.New("kurpod: passphrase did not unlock either volume")
	// ErrBusy is returned when a container file is already locked by
	// another process.
	ErrBusy = errors.New("kurpod: container is locked by another process")
	// ErrNotFound is returned when an operation names a path with no record.
	ErrNotFound = errors.New("kurpod: path not found")
	// ErrExists is returned when an operation would overwrite an existing
	// path where that isn't permitted.
	ErrExists = errors.New("kurpod: path already exists")
	// ErrOutOfSpace is returned when a data region has no room left for an
	// append.
	ErrOutOfSpace = errors.New("kurpod: volume is out of space")
	// ErrCorruption is returned when on-disk data fails to authenticate or
	// decode in a way a bad passphrase cannot explain (e.g. after the
	// header has already opened successfully).
	ErrCorruption = errors.New("kurpod: container data is corrupt")
	// ErrInvalidArgument is returned for caller errors: a malformed path, a
	// negative range, a capacity of zero, and similar.
	ErrInvalidArgument = errors.New("kurpod: invalid argument")
)

func kindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrBadPassphrase):
		return KindBadPassphrase
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExists):
		return KindExists
	case errors.Is(err, ErrOutOfSpace):
		return KindOutOfSpace
	case errors.Is(err, ErrCorruption):
		return KindCorruption
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	default:
		return KindIO
	}
}

func wrapErr(op, path string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(kindOf(err), op, path, err)
}
