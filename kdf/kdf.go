// Package kdf derives a 256-bit volume key from a user passphrase using
// Argon2id, and carries the parameters a header needs to store alongside the
// derived key so a reader can reproduce the derivation later.
package kdf

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// SaltLen is the fixed salt length stored in every header block.
const SaltLen = 16

// KeyLen is the derived volume key length (32 bytes).
const KeyLen = 32

// Params are the Argon2id cost parameters. They are recorded, not just
// assumed, so a header written under one profile stays verifiable even if a
// later release changes the process default (forward-compat per spec).
type Params struct {
	MemoryKiB   uint32 `cbor:"m" mapstructure:"m"`
	Iterations  uint32 `cbor:"t" mapstructure:"t"`
	Parallelism uint8  `cbor:"p" mapstructure:"p"`
}

// Standard is the spec-default profile: m=64MiB, t=3, p=1.
var Standard = Params{MemoryKiB: 64 * 1024, Iterations: 3, Parallelism: 1}

// Fast is a reduced-cost profile meant for test suites and development,
// selected via UseFastKDF/InFastKDFMode. It never changes the on-disk
// header wire format, only which numbers end up in it.
var Fast = Params{MemoryKiB: 8 * 1024, Iterations: 1, Parallelism: 1}

// Validate rejects parameters that would make Argon2id misbehave or that are
// unreasonable to ever have produced a real key (used when parsing params
// read back from an untrusted header, to avoid a DoS via absurd cost).
func (p Params) Validate() error {
	switch {
	case p.MemoryKiB == 0:
		return fmt.Errorf("memory cost must be non-zero")
	case p.MemoryKiB > 4*1024*1024:
		return fmt.Errorf("memory cost %dKiB exceeds sanity ceiling", p.MemoryKiB)
	case p.Iterations == 0:
		return fmt.Errorf("time cost must be non-zero")
	case p.Iterations > 64:
		return fmt.Errorf("time cost %d exceeds sanity ceiling", p.Iterations)
	case p.Parallelism == 0:
		return fmt.Errorf("parallelism must be non-zero")
	}
	return nil
}

// Derive runs Argon2id over pw and salt with the given params, returning a
// KeyLen-byte key. salt must be exactly SaltLen bytes.
func Derive(pw, salt []byte, params Params) ([]byte, error) {
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltLen, len(salt))
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kdf params: %w", err)
	}

	key := argon2.IDKey(pw, salt, params.Iterations, params.MemoryKiB, params.Parallelism, KeyLen)
	return key, nil
}

// DefaultParams returns the profile new headers should be written with,
// honoring the process-wide fast-KDF test override.
func DefaultParams(fast bool) Params {
	if fast {
		return Fast
	}
	return Standard
}
