// Package aead wraps a volume key into the two authenticated-encryption
// constructions kurpod needs: one-shot sealing for small values (the header's
// volume descriptor, the index tail pointer) and a chunked stream codec for
// file bodies (see SealChunk, OpenChunk, EncodeStream and DecodeStream).
//
// Both constructions run on ChaCha20-Poly1305, and both derive their working
// key from the volume key via HKDF rather than using it directly, so that a
// nonce-handling mistake in one context can't be replayed against the other.
package aead

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// ErrAuthFailed is wrapped into every authentication failure this package
// returns, whether from a bad key, a corrupted ciphertext, or a tampered
// tag. Callers that need to distinguish "this data is corrupt" from other
// I/O failures check for it with errors.Is rather than matching on the
// specific wrapped message.
var ErrAuthFailed = errors.New("aead: authentication failed")

// NonceSize is the nonce length for both value sealing and chunk sealing.
const NonceSize = chacha20poly1305.NonceSize // 12

// Overhead is the authentication tag length appended by Seal.
const Overhead = chacha20poly1305.Overhead // 16

const (
	valueKeyInfo = "kurpod-value-v1"
	chunkKeyInfo = "kurpod-chunk-v1"
)

// AEAD holds the two subkeyed ciphers derived from one volume key.
type AEAD struct {
	value cipherAEAD
	chunk cipherAEAD
}

// cipherAEAD is the subset of cipher.AEAD this package relies on, named
// locally so the field types above stay self-documenting.
type cipherAEAD interface {
	Seal(dst, nonce, plaintext, additionalData []byte) []byte
	Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
}

// New derives the value and chunk subkeys from volumeKey and builds an AEAD
// ready to seal or open values and chunks. volumeKey is never used directly.
func New(volumeKey []byte) (*AEAD, error) {
	valueKey, err := deriveSubkey(volumeKey, valueKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("aead: deriving value subkey: %w", err)
	}
	chunkKey, err := deriveSubkey(volumeKey, chunkKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("aead: deriving chunk subkey: %w", err)
	}

	valueCipher, err := chacha20poly1305.New(valueKey)
	if err != nil {
		return nil, fmt.Errorf("aead: constructing value cipher: %w", err)
	}
	chunkCipher, err := chacha20poly1305.New(chunkKey)
	if err != nil {
		return nil, fmt.Errorf("aead: constructing chunk cipher: %w", err)
	}

	return &AEAD{value: valueCipher, chunk: chunkCipher}, nil
}

func deriveSubkey(volumeKey []byte, info string) ([]byte, error) {
	out := make([]byte, 32)
	kdf := hkdf.New(sha256.New, volumeKey, nil, []byte(info))
	if _, err := io.ReadFull(kdf, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SealValue seals plaintext under nonce and aad, returning ciphertext||tag.
// nonce must never repeat for the lifetime of the volume key; callers that
// only seal one value per header (the descriptor, the tail pointer) may draw
// it from a CSPRNG.
func (a *AEAD) SealValue(nonce [NonceSize]byte, aad, plaintext []byte) []byte {
	return a.value.Seal(nil, nonce[:], plaintext, aad)
}

// OpenValue reverses SealValue. No plaintext is returned on authentication
// failure.
func (a *AEAD) OpenValue(nonce [NonceSize]byte, aad, sealed []byte) ([]byte, error) {
	out, err := a.value.Open(nil, nonce[:], sealed, aad)
	if err != nil {
		return nil, fmt.Errorf("aead: value authentication failed: %w: %w", ErrAuthFailed, err)
	}
	return out, nil
}
