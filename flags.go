package kurpod

import (
	"sync/atomic"

	"github.com/srv1n/kurpod/log"
)

type atomicBool int32

func (b *atomicBool) isSet() bool { return atomic.LoadInt32((*int32)(b)) != 0 }
func (b *atomicBool) setTrue()    { atomic.StoreInt32((*int32)(b), 1) }
func (b *atomicBool) setFalse()   { atomic.StoreInt32((*int32)(b), 0) }

// -----------------------------------------------------------------------------

var fastKDFMode atomicBool

// InFastKDFMode returns whether the reduced-cost KDF profile is in effect.
func InFastKDFMode() bool {
	return fastKDFMode.isSet()
}

// UseFastKDF swaps in the reduced-cost Argon2id profile for every subsequent
// Init call in this process and returns a function that reverts it. Unlock
// always derives with the parameters recorded in each header.
//
// This never changes the on-disk format: the chosen profile's parameters are
// always recorded in the header alongside the salt, so a container created
// under the fast profile unlocks fine once reverted (and vice versa). It
// exists so integration tests don't pay the real ~64MiB/3-pass Argon2id cost
// on every unlock.
//
// Calling this multiple times while already enabled produces no effect.
func UseFastKDF() (revert func()) {
	if fastKDFMode.isSet() {
		return func() {}
	}

	fastKDFMode.setTrue()
	log.Level(log.DebugLevel).Message("kurpod: fast KDF profile enabled")

	return func() {
		fastKDFMode.setFalse()
		log.Level(log.DebugLevel).Message("kurpod: fast KDF profile disabled")
	}
}
