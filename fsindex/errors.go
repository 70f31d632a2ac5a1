package fsindex

import "errors"

// ErrNotFound is returned by Rename when the source path has no record.
var ErrNotFound = errors.New("fsindex: path not found")

// ErrExists is returned by Rename when the destination path already has a
// record.
var ErrExists = errors.New("fsindex: destination path already exists")
