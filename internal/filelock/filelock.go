// Package filelock takes an advisory, exclusive, non-blocking lock on a
// container file so two processes never open the same volume for writing at
// once. The lock is advisory only: it does not stop a reader that ignores
// it, but every operation in this module that opens a container for mutation
// goes through it first.
package filelock

import (
	"fmt"
	"os"
)

// Lock wraps an open file descriptor holding an advisory lock, released by
// Release.
type Lock struct {
	f *os.File
}

// Acquire opens path and takes an exclusive, non-blocking advisory lock on
// it. It fails immediately (rather than blocking) if another process already
// holds the lock, since a container that's mid-write elsewhere must never be
// opened for a second concurrent mutation.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("filelock: opening %q: %w", path, err)
	}

	if err := lockExclusiveNonBlocking(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("filelock: %q is already locked: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// File returns the locked, open file descriptor for positioned reads and
// writes. It remains valid until Release.
func (l *Lock) File() *os.File {
	return l.f
}

// Release drops the lock and closes the underlying descriptor.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	if err := unlock(l.f); err != nil {
		_ = l.f.Close()
		return fmt.Errorf("filelock: releasing lock: %w", err)
	}
	return l.f.Close()
}
