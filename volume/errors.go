package volume

import "errors"

// errNoValidTail names the state where neither tail slot authenticates
// against the volume key. Unlock does not return it: it treats that state as
// "freshly initialized volume, no index persisted yet" and returns an empty
// engine, since a brand-new data region is all zero bytes, which cannot
// authenticate as either slot, and that is the expected state right after
// Init.
var errNoValidTail = errors.New("volume: no valid tail trailer found")

// ErrOutOfSpace is returned by Append when the data region has no room left
// for the incoming stream.
var ErrOutOfSpace = errors.New("volume: data region is out of space")

// ErrSealed is returned by any operation attempted after Seal.
var ErrSealed = errors.New("volume: engine is sealed")
