package container_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/container"
	"github.com/srv1n/kurpod/kdf"
)

// memFile is a minimal io.ReaderAt/io.WriterAt backed by an in-memory
// buffer, sized lazily as writes land.
type memFile struct {
	buf []byte
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(m.buf)) {
		grown := make([]byte, end)
		copy(grown, m.buf)
		m.buf = grown
	}
	copy(m.buf[off:end], p)
	return len(p), nil
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	if n < len(p) {
		return n, io.ErrUnexpectedEOF
	}
	return n, nil
}

func testDescriptor(kind container.VolumeKind) container.Descriptor {
	return container.Descriptor{
		Magic:      container.MagicTag,
		Kind:       kind,
		VolumeID:   [16]byte{1, 2, 3, 4},
		RegionOff:  8192,
		RegionCap:  1 << 20,
		Generation: 1,
	}
}

func TestWriteTryOpenHeader_RoundTrip(t *testing.T) {
	t.Parallel()

	f := &memFile{}
	desc := testDescriptor(container.Standard)

	key, err := container.WriteHeader(f, 0, []byte("correct horse"), kdf.Fast, desc)
	require.NoError(t, err)
	require.Len(t, key, kdf.KeyLen)

	gotKey, gotDesc, err := container.TryOpenHeader(f, 0, []byte("correct horse"))
	require.NoError(t, err)
	require.Equal(t, key, gotKey)
	require.Equal(t, desc, gotDesc)
}

func TestTryOpenHeader_WrongPassphraseFails(t *testing.T) {
	t.Parallel()

	f := &memFile{}
	_, err := container.WriteHeader(f, 0, []byte("correct horse"), kdf.Fast, testDescriptor(container.Standard))
	require.NoError(t, err)

	_, _, err = container.TryOpenHeader(f, 0, []byte("wrong horse"))
	require.ErrorIs(t, err, container.ErrHeaderAuthFailed)
}

func TestTryOpenHeader_RandomFillAlwaysFails(t *testing.T) {
	t.Parallel()

	f := &memFile{}
	require.NoError(t, container.WriteRandomHeader(f, 0))

	_, _, err := container.TryOpenHeader(f, 0, []byte("any passphrase at all"))
	require.ErrorIs(t, err, container.ErrHeaderAuthFailed)
}

func TestWriteHeader_BlockIsFixedSize(t *testing.T) {
	t.Parallel()

	f := &memFile{}
	_, err := container.WriteHeader(f, 0, []byte("pw"), kdf.Fast, testDescriptor(container.Hidden))
	require.NoError(t, err)
	require.Len(t, f.buf, container.HeaderSize)
}

func TestRandomAndRealHeadersAreSameLength(t *testing.T) {
	t.Parallel()

	real := &memFile{}
	_, err := container.WriteHeader(real, 0, []byte("pw"), kdf.Fast, testDescriptor(container.Hidden))
	require.NoError(t, err)

	decoy := &memFile{}
	require.NoError(t, container.WriteRandomHeader(decoy, 0))

	require.Equal(t, len(real.buf), len(decoy.buf))
	require.NotEqual(t, real.buf, decoy.buf)
	require.False(t, bytes.Equal(real.buf, decoy.buf))
}
