package container

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/srv1n/kurpod/aead"
	"github.com/srv1n/kurpod/internal/randomness"
	"github.com/srv1n/kurpod/kdf"
)

// Header block layout, all offsets relative to the block's own start:
//
//	[0:16)    salt
//	[16:20)   Argon2id memory cost, KiB, LE u32
//	[20:24)   Argon2id time cost (iterations), LE u32
//	[24:25)   Argon2id parallelism
//	[25:37)   AEAD nonce
//	[37:39)   sealed descriptor length, LE u16
//	[39:39+n) sealed descriptor (ciphertext || tag)
//	[39+n:)   random padding out to HeaderSize
const (
	offSalt       = 0
	offMemory     = offSalt + kdf.SaltLen
	offIterations = offMemory + 4
	offParallel   = offIterations + 4
	offNonce      = offParallel + 1
	offSealedLen  = offNonce + aead.NonceSize
	offSealed     = offSealedLen + 2
)

// WriteHeader derives a volume key from pw under a fresh salt and the given
// KDF params, seals desc under that key, and writes a full HeaderSize block
// to w at offset. The tail of the block beyond the sealed descriptor is
// filled with random bytes so the block's length never varies with the
// descriptor's actual content length beyond what the length prefix already
// reveals.
func WriteHeader(w io.WriterAt, offset int64, pw []byte, params kdf.Params, desc Descriptor) (key []byte, err error) {
	salt, err := randomness.Bytes(kdf.SaltLen)
	if err != nil {
		return nil, fmt.Errorf("container: generating salt: %w", err)
	}

	key, err = kdf.Derive(pw, salt, params)
	if err != nil {
		return nil, fmt.Errorf("container: deriving header key: %w", err)
	}

	plaintext, err := desc.Marshal()
	if err != nil {
		return nil, err
	}

	a, err := aead.New(key)
	if err != nil {
		return nil, fmt.Errorf("container: constructing header aead: %w", err)
	}

	var nonce [aead.NonceSize]byte
	nonceBytes, err := randomness.Bytes(aead.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("container: generating header nonce: %w", err)
	}
	copy(nonce[:], nonceBytes)

	sealed := a.SealValue(nonce, salt, plaintext)
	if offSealed+len(sealed) > HeaderSize {
		return nil, fmt.Errorf("container: sealed descriptor too large for header block (%d bytes)", len(sealed))
	}

	block := make([]byte, HeaderSize)
	copy(block[offSalt:], salt)
	binary.LittleEndian.PutUint32(block[offMemory:], params.MemoryKiB)
	binary.LittleEndian.PutUint32(block[offIterations:], params.Iterations)
	block[offParallel] = params.Parallelism
	copy(block[offNonce:], nonce[:])
	binary.LittleEndian.PutUint16(block[offSealedLen:], uint16(len(sealed)))
	copy(block[offSealed:], sealed)

	padding, err := randomness.Bytes(HeaderSize - offSealed - len(sealed))
	if err != nil {
		return nil, fmt.Errorf("container: generating header padding: %w", err)
	}
	copy(block[offSealed+len(sealed):], padding)

	if _, err := w.WriteAt(block, offset); err != nil {
		return nil, fmt.Errorf("container: writing header block: %w", err)
	}

	return key, nil
}

// WriteRandomHeader fills a header block with uniformly random bytes: no
// salt, no structure, nothing a reader can distinguish from a real header
// without the key that would open it. This is what Init writes for the
// hidden header when the caller supplies no hidden passphrase.
func WriteRandomHeader(w io.WriterAt, offset int64) error {
	block, err := randomness.Bytes(HeaderSize)
	if err != nil {
		return fmt.Errorf("container: generating random header fill: %w", err)
	}
	if _, err := w.WriteAt(block, offset); err != nil {
		return fmt.Errorf("container: writing random header block: %w", err)
	}
	return nil
}

// TryOpenHeader reads the header block at offset and attempts to derive a
// key from pw and open it. It returns only a generic failure on any kind of
// mismatch — wrong passphrase, a random-fill decoy block, or a corrupt
// block are indistinguishable to the caller, which is exactly the property
// that keeps a decoy header from being told apart from a real one under a
// wrong guess.
//
// The Argon2id derivation always runs, whether or not the recorded params
// or sealed-length field parse as anything sane: at the recorded params'
// cost when they validate, at kdf.Standard's cost otherwise. A decoy thus
// costs the same as a real header written with kdf.Standard; a header
// written with another profile (such as kdf.Fast) costs what its own
// params cost. A
// random-fill decoy's bytes fail Params.Validate (or land the sealed length
// out of bounds) on all but a vanishing fraction of attempts, and returning
// before paying the Argon2id cost in that case would let an attacker tell a
// decoy header apart from a real one under a wrong guess by wall-clock time
// alone. Every branch on the parsed fields therefore only selects *what*
// gets derived/opened, never *whether* — the pass/fail decision is made
// once, at the end, from every intermediate result together.
func TryOpenHeader(r io.ReaderAt, offset int64, pw []byte) ([]byte, Descriptor, error) {
	block := make([]byte, HeaderSize)
	if _, err := r.ReadAt(block, offset); err != nil {
		return nil, Descriptor{}, fmt.Errorf("container: reading header block: %w", err)
	}

	salt := block[offSalt:offMemory]
	recordedParams := kdf.Params{
		MemoryKiB:   binary.LittleEndian.Uint32(block[offMemory:offIterations]),
		Iterations:  binary.LittleEndian.Uint32(block[offIterations:offParallel]),
		Parallelism: block[offParallel],
	}
	paramsOK := recordedParams.Validate() == nil

	// Random bytes read as cost parameters would otherwise risk asking
	// Argon2id to allocate an attacker-uncontrolled (but decoy-controlled by
	// construction) amount of memory. Substitute the standard profile when
	// the recorded params don't validate, so the derivation still runs at a
	// real, bounded Argon2id cost instead of being skipped or risking a huge
	// allocation.
	deriveParams := recordedParams
	if !paramsOK {
		deriveParams = kdf.Standard
	}

	var nonce [aead.NonceSize]byte
	copy(nonce[:], block[offNonce:offSealedLen])

	sealedLen := int(binary.LittleEndian.Uint16(block[offSealedLen:offSealed]))
	sealedLenOK := sealedLen >= aead.Overhead && offSealed+sealedLen <= HeaderSize
	sealed := block[offSealed:]
	if sealedLenOK {
		sealed = block[offSealed : offSealed+sealedLen]
	}

	key, deriveErr := kdf.Derive(pw, salt, deriveParams)

	a, aeadErr := aead.New(key)

	var plaintext []byte
	var openErr error = ErrHeaderAuthFailed
	if aeadErr == nil {
		plaintext, openErr = a.OpenValue(nonce, salt, sealed)
	}

	var desc Descriptor
	var descErr error = ErrHeaderAuthFailed
	if openErr == nil {
		desc, descErr = UnmarshalDescriptor(plaintext)
	}

	if !paramsOK || !sealedLenOK || deriveErr != nil || aeadErr != nil || openErr != nil || descErr != nil {
		return nil, Descriptor{}, ErrHeaderAuthFailed
	}

	return key, desc, nil
}
