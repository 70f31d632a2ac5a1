package passphrase_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/internal/passphrase"
)

func TestDiceware_ClampsWordCount(t *testing.T) {
	t.Parallel()

	p, err := passphrase.Diceware(1)
	require.NoError(t, err)
	require.Len(t, strings.Split(p, "-"), passphrase.MinWordCount)

	p, err = passphrase.Diceware(1000)
	require.NoError(t, err)
	require.Len(t, strings.Split(p, "-"), passphrase.MaxWordCount)
}

func TestPredefinedLengths(t *testing.T) {
	t.Parallel()

	for name, fn := range map[string]func() (string, error){
		"basic":    passphrase.Basic,
		"strong":   passphrase.Strong,
		"paranoid": passphrase.Paranoid,
		"master":   passphrase.Master,
	} {
		p, err := fn()
		require.NoError(t, err, name)
		require.NotEmpty(t, p, name)
	}
}
