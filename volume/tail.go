package volume

import (
	"encoding/binary"
	"fmt"

	"github.com/srv1n/kurpod/aead"
	"github.com/srv1n/kurpod/internal/canonicalization"
	"github.com/srv1n/kurpod/internal/randomness"
)

const tailPlaintextSize = 24

// TailSize is the fixed size of one tail trailer: a fresh random nonce, the
// sealed geometry pointer, and its AEAD tag. It is the only part of a
// volume ever rewritten in place after creation, which is why it carries
// its own nonce rather than reusing a counter scheme that would require
// reconstructing history to avoid reuse.
const TailSize = aead.NonceSize + tailPlaintextSize + aead.Overhead

// tailPayload is the mutable pointer to a volume's current index snapshot.
// IndexBlockStartSeq is the block-sequence counter value the index blob's
// first chunk was sealed under; since blocks carry no on-disk framing of
// their own sequence number, this is what lets the engine both open the
// blob and resume handing out fresh, never-reused sequence numbers after
// an unlock (the next one available is IndexBlockStartSeq+IndexBlockCount,
// since a persist always writes the index blob last).
type tailPayload struct {
	IndexBlockOffset   uint64 // region-relative byte offset of the index blob
	IndexBlockCount    uint32 // number of chunks in the index blob
	IndexBlockStartSeq uint64
	Generation         uint32
}

func tailAAD(volumeID [16]byte) ([]byte, error) {
	return canonicalization.PreAuthenticationEncoding([]byte("TAIL"), volumeID[:])
}

func sealTail(a *aead.AEAD, volumeID [16]byte, p tailPayload) ([]byte, error) {
	aad, err := tailAAD(volumeID)
	if err != nil {
		return nil, fmt.Errorf("volume: building tail aad: %w", err)
	}

	var plain [tailPlaintextSize]byte
	binary.LittleEndian.PutUint64(plain[0:8], p.IndexBlockOffset)
	binary.LittleEndian.PutUint32(plain[8:12], p.IndexBlockCount)
	binary.LittleEndian.PutUint64(plain[12:20], p.IndexBlockStartSeq)
	binary.LittleEndian.PutUint32(plain[20:24], p.Generation)

	nonceBytes, err := randomness.Bytes(aead.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("volume: generating tail nonce: %w", err)
	}
	var nonce [aead.NonceSize]byte
	copy(nonce[:], nonceBytes)

	sealed := a.SealValue(nonce, aad, plain[:])

	out := make([]byte, 0, TailSize)
	out = append(out, nonce[:]...)
	out = append(out, sealed...)
	if len(out) != TailSize {
		return nil, fmt.Errorf("volume: sealed tail has unexpected length %d", len(out))
	}
	return out, nil
}

func openTail(a *aead.AEAD, volumeID [16]byte, slot []byte) (tailPayload, error) {
	if len(slot) != TailSize {
		return tailPayload{}, fmt.Errorf("volume: tail slot has unexpected length %d", len(slot))
	}

	aad, err := tailAAD(volumeID)
	if err != nil {
		return tailPayload{}, fmt.Errorf("volume: building tail aad: %w", err)
	}

	var nonce [aead.NonceSize]byte
	copy(nonce[:], slot[:aead.NonceSize])

	plain, err := a.OpenValue(nonce, aad, slot[aead.NonceSize:])
	if err != nil {
		return tailPayload{}, fmt.Errorf("volume: tail authentication failed: %w", err)
	}

	return tailPayload{
		IndexBlockOffset:   binary.LittleEndian.Uint64(plain[0:8]),
		IndexBlockCount:    binary.LittleEndian.Uint32(plain[8:12]),
		IndexBlockStartSeq: binary.LittleEndian.Uint64(plain[12:20]),
		Generation:         binary.LittleEndian.Uint32(plain[20:24]),
	}, nil
}
