package aead_test

import (
	"bytes"
	"testing"

	"github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/aead"
)

func testVolumeID(b byte) [16]byte {
	var id [16]byte
	for i := range id {
		id[i] = b
	}
	return id
}

func TestSealOpenChunk_RoundTrip(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x44))
	require.NoError(t, err)
	volumeID := testVolumeID(0xaa)

	plaintext := []byte("one chunk of data")
	framed, err := a.SealChunk(volumeID, 7, plaintext)
	require.NoError(t, err)
	require.Len(t, framed, aead.FramedLen(len(plaintext)))

	opened, err := a.OpenChunk(volumeID, 7, framed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestOpenChunk_RejectsWrongBlockSeq(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x55))
	require.NoError(t, err)
	volumeID := testVolumeID(0xbb)

	framed, err := a.SealChunk(volumeID, 3, []byte("payload"))
	require.NoError(t, err)

	_, err = a.OpenChunk(volumeID, 4, framed)
	require.Error(t, err)
}

func TestOpenChunk_RejectsWrongVolumeID(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x66))
	require.NoError(t, err)

	framed, err := a.SealChunk(testVolumeID(0x01), 0, []byte("payload"))
	require.NoError(t, err)

	_, err = a.OpenChunk(testVolumeID(0x02), 0, framed)
	require.Error(t, err)
}

func TestChunkPlaintextLenAndCount(t *testing.T) {
	t.Parallel()

	require.Equal(t, 1, aead.ChunkCount(0))
	require.Equal(t, 0, aead.ChunkPlaintextLen(0, 1, 0))

	size := int64(aead.ChunkPlaintextSize*2 + 100)
	require.Equal(t, 3, aead.ChunkCount(size))
	require.Equal(t, aead.ChunkPlaintextSize, aead.ChunkPlaintextLen(size, 3, 0))
	require.Equal(t, aead.ChunkPlaintextSize, aead.ChunkPlaintextLen(size, 3, 1))
	require.Equal(t, 100, aead.ChunkPlaintextLen(size, 3, 2))
}

func TestEncodeDecodeStream_RoundTrip(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x77))
	require.NoError(t, err)
	volumeID := testVolumeID(0xcc)

	f := fuzz.New().NilChance(0).NumElements(1, 3*aead.ChunkPlaintextSize)
	var plaintext []byte
	f.Fuzz(&plaintext)

	var sealedBuf bytes.Buffer
	chunkCount, nextSeq, err := a.EncodeStream(&sealedBuf, bytes.NewReader(plaintext), volumeID, 100)
	require.NoError(t, err)
	require.Equal(t, aead.ChunkCount(int64(len(plaintext))), chunkCount)
	require.Equal(t, uint64(100+chunkCount), nextSeq)

	var out bytes.Buffer
	err = a.DecodeStream(&out, &sealedBuf, volumeID, 100, int64(len(plaintext)), chunkCount)
	require.NoError(t, err)
	require.Equal(t, plaintext, out.Bytes())
}

func TestEncodeDecodeStream_EmptyInput(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x88))
	require.NoError(t, err)
	volumeID := testVolumeID(0xdd)

	var sealedBuf bytes.Buffer
	chunkCount, nextSeq, err := a.EncodeStream(&sealedBuf, bytes.NewReader(nil), volumeID, 0)
	require.NoError(t, err)
	require.Equal(t, 1, chunkCount)
	require.Equal(t, uint64(1), nextSeq)

	var out bytes.Buffer
	err = a.DecodeStream(&out, &sealedBuf, volumeID, 0, 0, chunkCount)
	require.NoError(t, err)
	require.Empty(t, out.Bytes())
}

func TestDecodeStream_RejectsTamperedChunk(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x99))
	require.NoError(t, err)
	volumeID := testVolumeID(0xee)

	plaintext := bytes.Repeat([]byte{0x42}, aead.ChunkPlaintextSize+10)
	var sealedBuf bytes.Buffer
	chunkCount, _, err := a.EncodeStream(&sealedBuf, bytes.NewReader(plaintext), volumeID, 0)
	require.NoError(t, err)

	corrupted := sealedBuf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xff

	var out bytes.Buffer
	err = a.DecodeStream(&out, bytes.NewReader(corrupted), volumeID, 0, int64(len(plaintext)), chunkCount)
	require.Error(t, err)
}
