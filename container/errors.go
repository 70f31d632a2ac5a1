package container

import "errors"

// ErrHeaderAuthFailed is returned, never wrapped with detail, for every way
// a header can fail to open: wrong passphrase, a random-fill decoy, or a
// corrupt block. Distinguishing these to the caller would tell a passphrase
// guesser whether the hidden header even contains anything.
var ErrHeaderAuthFailed = errors.New("container: header authentication failed")
