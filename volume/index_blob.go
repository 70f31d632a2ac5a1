package volume

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/srv1n/kurpod/aead"
	"github.com/srv1n/kurpod/fsindex"
)

// An index blob is how a serialized fsindex.Index is stored as a run of
// chunks in the data region. Its plaintext, before chunking, is:
//
//	[0:8)   length of the fsindex.Encode payload, LE u64
//	[8:8+n) fsindex.Encode(idx) bytes
//	[8+n:)  zero padding out to a multiple of aead.ChunkPlaintextSize
//
// Padding every chunk to a full size (rather than leaving the last one
// short, as a file body does) means every chunk in the blob has the same
// on-disk length, so reading IndexBlockCount chunks back needs no separate
// record of the blob's exact byte length — only the chunk count and starting
// block sequence the tail trailer already carries.
func encodeIndexBlob(idx *fsindex.Index) []byte {
	payload := fsindex.Encode(idx)

	header := make([]byte, 8)
	binary.LittleEndian.PutUint64(header[0:8], uint64(len(payload)))

	plain := append(header, payload...)
	if rem := len(plain) % aead.ChunkPlaintextSize; rem != 0 {
		plain = append(plain, make([]byte, aead.ChunkPlaintextSize-rem)...)
	}
	return plain
}

func decodeIndexBlob(plain []byte) (*fsindex.Index, error) {
	if len(plain) < 8 {
		return nil, fmt.Errorf("volume: index blob shorter than its own header")
	}
	payloadLen := binary.LittleEndian.Uint64(plain[0:8])
	if 8+payloadLen > uint64(len(plain)) {
		return nil, fmt.Errorf("volume: index blob declares a payload longer than the blob itself")
	}

	idx, err := fsindex.Decode(plain[8 : 8+payloadLen])
	if err != nil {
		return nil, fmt.Errorf("volume: decoding index payload: %w", err)
	}
	return idx, nil
}

// sealIndexBlob seals an already-padded blob as a run of full-size chunks,
// writing them to w starting at startBlockSeq, and returns how many chunks
// were written.
func sealIndexBlob(a *aead.AEAD, volumeID [16]byte, w io.Writer, plain []byte, startBlockSeq uint64) (chunkCount int, err error) {
	if len(plain)%aead.ChunkPlaintextSize != 0 {
		return 0, fmt.Errorf("volume: index blob plaintext is not chunk-aligned")
	}

	blockSeq := startBlockSeq
	for off := 0; off < len(plain); off += aead.ChunkPlaintextSize {
		chunk := plain[off : off+aead.ChunkPlaintextSize]
		framed, err := a.SealChunk(volumeID, blockSeq, chunk)
		if err != nil {
			return chunkCount, err
		}
		if _, err := w.Write(framed); err != nil {
			return chunkCount, fmt.Errorf("volume: writing index chunk %d: %w", chunkCount, err)
		}
		chunkCount++
		blockSeq++
	}
	return chunkCount, nil
}

// openIndexBlob reads chunkCount full-size chunks from r, starting at
// startBlockSeq, authenticates each, and reassembles the padded plaintext.
func openIndexBlob(a *aead.AEAD, volumeID [16]byte, r io.Reader, startBlockSeq uint64, chunkCount int) ([]byte, error) {
	var out bytes.Buffer
	framed := make([]byte, aead.FramedLen(aead.ChunkPlaintextSize))

	blockSeq := startBlockSeq
	for i := 0; i < chunkCount; i++ {
		if _, err := io.ReadFull(r, framed); err != nil {
			return nil, fmt.Errorf("volume: reading index chunk %d: %w", i, err)
		}
		plain, err := a.OpenChunk(volumeID, blockSeq, framed)
		if err != nil {
			return nil, fmt.Errorf("volume: opening index chunk %d: %w", i, err)
		}
		out.Write(plain)
		blockSeq++
	}

	return out.Bytes(), nil
}
