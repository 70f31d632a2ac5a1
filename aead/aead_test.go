package aead_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/aead"
)

func testKey(b byte) []byte {
	k := make([]byte, 32)
	for i := range k {
		k[i] = b
	}
	return k
}

func TestSealOpenValue_RoundTrip(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x11))
	require.NoError(t, err)

	var nonce [aead.NonceSize]byte
	for i := range nonce {
		nonce[i] = byte(i)
	}

	aad := []byte("header-descriptor")
	plaintext := []byte("the quick brown fox jumps over the lazy dog")

	sealed := a.SealValue(nonce, aad, plaintext)
	require.NotEqual(t, plaintext, sealed)
	require.Len(t, sealed, len(plaintext)+aead.Overhead)

	opened, err := a.OpenValue(nonce, aad, sealed)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestOpenValue_RejectsWrongAAD(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x22))
	require.NoError(t, err)

	var nonce [aead.NonceSize]byte
	sealed := a.SealValue(nonce, []byte("standard"), []byte("secret"))

	_, err = a.OpenValue(nonce, []byte("hidden"), sealed)
	require.Error(t, err)
}

func TestOpenValue_RejectsTamperedCiphertext(t *testing.T) {
	t.Parallel()

	a, err := aead.New(testKey(0x33))
	require.NoError(t, err)

	var nonce [aead.NonceSize]byte
	sealed := a.SealValue(nonce, nil, []byte("secret payload"))
	sealed[0] ^= 0xff

	_, err = a.OpenValue(nonce, nil, sealed)
	require.Error(t, err)
}

func TestNew_DifferentKeysDivergeSubkeys(t *testing.T) {
	t.Parallel()

	a1, err := aead.New(testKey(0x01))
	require.NoError(t, err)
	a2, err := aead.New(testKey(0x02))
	require.NoError(t, err)

	var nonce [aead.NonceSize]byte
	s1 := a1.SealValue(nonce, nil, []byte("same plaintext"))
	s2 := a2.SealValue(nonce, nil, []byte("same plaintext"))
	require.NotEqual(t, s1, s2)
}
