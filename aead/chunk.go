package aead

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/srv1n/kurpod/internal/canonicalization"
)

// ChunkPlaintextSize is the fixed plaintext size of every chunk except the
// last one in a stream, which may be shorter. Sizing chunks in the plaintext
// domain (rather than the on-disk domain) means a chunk's on-disk length is
// always plaintext length + NonceSize + Overhead, with no separate framing
// to track.
const ChunkPlaintextSize = 64 * 1024

// FramedLen returns the on-disk length of a chunk carrying plaintextLen
// bytes: the stored nonce, the ciphertext (same length as the plaintext),
// and the authentication tag.
func FramedLen(plaintextLen int) int {
	return NonceSize + plaintextLen + Overhead
}

// chunkNonce encodes a block sequence number as a 96-bit counter nonce: the
// top 4 bytes are zero, the bottom 8 carry blockSeq big-endian. Reuse across
// the lifetime of one volume key would let an attacker forge chunks, so
// blockSeq must never repeat for as long as the chunk subkey is live — the
// volume engine enforces this by handing out a strictly increasing counter
// and never reusing one after a key rotation.
func chunkNonce(blockSeq uint64) [NonceSize]byte {
	var n [NonceSize]byte
	binary.BigEndian.PutUint64(n[NonceSize-8:], blockSeq)
	return n
}

func chunkAAD(volumeID [16]byte, blockSeq uint64) ([]byte, error) {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], blockSeq)
	return canonicalization.PreAuthenticationEncoding(volumeID[:], seq[:])
}

// SealChunk frames and seals one plaintext chunk, returning
// nonce(12B) || ciphertext || tag(16B). blockSeq binds the chunk to its
// position in the volume's chunk sequence and becomes both the nonce counter
// and part of the additional data, so a chunk seen at the wrong position in
// the stream fails to open rather than silently decrypting with the wrong
// framing.
func (a *AEAD) SealChunk(volumeID [16]byte, blockSeq uint64, plaintext []byte) ([]byte, error) {
	aad, err := chunkAAD(volumeID, blockSeq)
	if err != nil {
		return nil, fmt.Errorf("aead: building chunk aad: %w", err)
	}

	nonce := chunkNonce(blockSeq)
	framed := make([]byte, 0, FramedLen(len(plaintext)))
	framed = append(framed, nonce[:]...)
	framed = a.chunk.Seal(framed, nonce[:], plaintext, aad)
	return framed, nil
}

// OpenChunk reverses SealChunk. The caller supplies the blockSeq it expects
// this chunk to occupy; OpenChunk rejects the chunk if the nonce stored on
// disk doesn't match, catching reordered or truncated extents before
// attempting authentication.
func (a *AEAD) OpenChunk(volumeID [16]byte, blockSeq uint64, framed []byte) ([]byte, error) {
	if len(framed) < NonceSize+Overhead {
		return nil, fmt.Errorf("aead: framed chunk too short (%d bytes)", len(framed))
	}

	var nonce [NonceSize]byte
	copy(nonce[:], framed[:NonceSize])
	if nonce != chunkNonce(blockSeq) {
		return nil, fmt.Errorf("aead: chunk nonce does not match expected block sequence %d: %w", blockSeq, ErrAuthFailed)
	}

	aad, err := chunkAAD(volumeID, blockSeq)
	if err != nil {
		return nil, fmt.Errorf("aead: building chunk aad: %w", err)
	}

	out, err := a.chunk.Open(nil, nonce[:], framed[NonceSize:], aad)
	if err != nil {
		return nil, fmt.Errorf("aead: chunk authentication failed at block %d: %w: %w", blockSeq, ErrAuthFailed, err)
	}
	return out, nil
}

// ChunkPlaintextLen returns the plaintext length of the chunk at index i
// (zero-based) within a stream of totalSize bytes split into chunkCount
// chunks of ChunkPlaintextSize each, except the last, which is shorter.
func ChunkPlaintextLen(totalSize int64, chunkCount, i int) int {
	if i < chunkCount-1 {
		return ChunkPlaintextSize
	}
	return int(totalSize - int64(chunkCount-1)*ChunkPlaintextSize)
}

// ChunkCount returns how many ChunkPlaintextSize-sized chunks a stream of
// totalSize bytes splits into (minimum one, even for an empty stream, so a
// zero-length file still gets one authenticated, empty chunk).
func ChunkCount(totalSize int64) int {
	if totalSize == 0 {
		return 1
	}
	n := totalSize / ChunkPlaintextSize
	if totalSize%ChunkPlaintextSize != 0 {
		n++
	}
	return int(n)
}

// EncodeStream reads all of r, seals it into ChunkPlaintextSize-sized chunks
// starting at startBlockSeq, and writes the framed chunks to w in order. It
// returns the number of chunks written and the next unused block sequence
// number.
func (a *AEAD) EncodeStream(w io.Writer, r io.Reader, volumeID [16]byte, startBlockSeq uint64) (chunkCount int, nextBlockSeq uint64, err error) {
	buf := make([]byte, ChunkPlaintextSize)
	blockSeq := startBlockSeq
	wroteAny := false

	for {
		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			framed, sealErr := a.SealChunk(volumeID, blockSeq, buf[:n])
			if sealErr != nil {
				return chunkCount, blockSeq, sealErr
			}
			if _, writeErr := w.Write(framed); writeErr != nil {
				return chunkCount, blockSeq, fmt.Errorf("aead: writing chunk %d: %w", chunkCount, writeErr)
			}
			chunkCount++
			blockSeq++
			wroteAny = true
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return chunkCount, blockSeq, fmt.Errorf("aead: reading plaintext: %w", readErr)
		}
	}

	if !wroteAny {
		framed, sealErr := a.SealChunk(volumeID, blockSeq, nil)
		if sealErr != nil {
			return chunkCount, blockSeq, sealErr
		}
		if _, writeErr := w.Write(framed); writeErr != nil {
			return chunkCount, blockSeq, fmt.Errorf("aead: writing empty chunk: %w", writeErr)
		}
		chunkCount++
		blockSeq++
	}

	return chunkCount, blockSeq, nil
}

// DecodeStream reads chunkCount framed chunks from r, each expected at
// consecutive block sequence numbers starting at startBlockSeq, and writes
// their authenticated plaintext to w. totalSize must be the original
// stream's plaintext size, used to compute each chunk's on-disk length since
// chunks carry no internal length prefix. No partial plaintext is written
// for a chunk that fails authentication: DecodeStream reads the full framed
// chunk into memory, opens it, and only then writes the result, so a
// forged tail never reaches the caller's writer.
func (a *AEAD) DecodeStream(w io.Writer, r io.Reader, volumeID [16]byte, startBlockSeq uint64, totalSize int64, chunkCount int) error {
	blockSeq := startBlockSeq
	framed := make([]byte, FramedLen(ChunkPlaintextSize))

	for i := 0; i < chunkCount; i++ {
		plainLen := ChunkPlaintextLen(totalSize, chunkCount, i)
		framedLen := FramedLen(plainLen)

		if _, err := io.ReadFull(r, framed[:framedLen]); err != nil {
			return fmt.Errorf("aead: reading chunk %d: %w", i, err)
		}

		plaintext, err := a.OpenChunk(volumeID, blockSeq, framed[:framedLen])
		if err != nil {
			return err
		}
		if _, err := w.Write(plaintext); err != nil {
			return fmt.Errorf("aead: writing plaintext for chunk %d: %w", i, err)
		}
		blockSeq++
	}

	return nil
}
