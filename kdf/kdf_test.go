package kdf_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/kdf"
)

func TestDerive_Deterministic(t *testing.T) {
	t.Parallel()

	salt := make([]byte, kdf.SaltLen)
	for i := range salt {
		salt[i] = byte(i)
	}

	k1, err := kdf.Derive([]byte("correct horse battery staple"), salt, kdf.Fast)
	require.NoError(t, err)
	require.Len(t, k1, kdf.KeyLen)

	k2, err := kdf.Derive([]byte("correct horse battery staple"), salt, kdf.Fast)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
}

func TestDerive_DifferentPasswordsDiverge(t *testing.T) {
	t.Parallel()

	salt := make([]byte, kdf.SaltLen)

	k1, err := kdf.Derive([]byte("alpha"), salt, kdf.Fast)
	require.NoError(t, err)

	k2, err := kdf.Derive([]byte("beta"), salt, kdf.Fast)
	require.NoError(t, err)

	require.NotEqual(t, k1, k2)
}

func TestDerive_RejectsBadSaltLength(t *testing.T) {
	t.Parallel()

	_, err := kdf.Derive([]byte("pw"), []byte("short"), kdf.Fast)
	require.Error(t, err)
}

func TestParams_Validate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		params  kdf.Params
		wantErr bool
	}{
		{"standard", kdf.Standard, false},
		{"fast", kdf.Fast, false},
		{"zero memory", kdf.Params{MemoryKiB: 0, Iterations: 1, Parallelism: 1}, true},
		{"zero iterations", kdf.Params{MemoryKiB: 1024, Iterations: 0, Parallelism: 1}, true},
		{"zero parallelism", kdf.Params{MemoryKiB: 1024, Iterations: 1, Parallelism: 0}, true},
		{"absurd memory", kdf.Params{MemoryKiB: 1 << 30, Iterations: 1, Parallelism: 1}, true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.params.Validate()
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoadProfileSet(t *testing.T) {
	t.Parallel()

	doc := `
standard:
  m: 131072
  t: 4
  p: 2
fast:
  m: 4096
  t: 1
  p: 1
`
	ps, err := kdf.LoadProfileSet(strings.NewReader(doc))
	require.NoError(t, err)
	require.EqualValues(t, 131072, ps.Standard.MemoryKiB)
	require.EqualValues(t, 4, ps.Standard.Iterations)
	require.EqualValues(t, 4096, ps.Fast.MemoryKiB)
}

func TestLoadProfileSet_PartialFallsBackToDefault(t *testing.T) {
	t.Parallel()

	ps, err := kdf.LoadProfileSet(strings.NewReader("fast:\n  m: 2048\n  t: 1\n  p: 1\n"))
	require.NoError(t, err)
	require.Equal(t, kdf.Standard, ps.Standard)
	require.EqualValues(t, 2048, ps.Fast.MemoryKiB)
}

func TestLoadProfileSet_InvalidRejected(t *testing.T) {
	t.Parallel()

	_, err := kdf.LoadProfileSet(strings.NewReader("standard:\n  m: 0\n  t: 1\n  p: 1\n"))
	require.Error(t, err)
}
