// Package passphrase generates DiceWare-style word passphrases. It exists
// for test fixtures and for callers that want to suggest a strong
// passphrase at Init time; the core container format never requires a
// passphrase to look like one of these.
package passphrase

import (
	"fmt"
	"strings"

	"github.com/sethvargo/go-diceware/diceware"
)

const (
	MinWordCount = 4
	MaxWordCount = 24

	BasicWordCount    = 4
	StrongWordCount   = 8
	ParanoidWordCount = 12
	MasterWordCount   = 24
)

// Diceware joins count randomly chosen English words with hyphens. count is
// clamped to [MinWordCount, MaxWordCount].
func Diceware(count int) (string, error) {
	if count < MinWordCount {
		count = MinWordCount
	}
	if count > MaxWordCount {
		count = MaxWordCount
	}

	words, err := diceware.Generate(count)
	if err != nil {
		return "", fmt.Errorf("passphrase: generating diceware words: %w", err)
	}
	return strings.Join(words, "-"), nil
}

// Basic returns a 4-word passphrase, suitable as a low floor for casual use.
func Basic() (string, error) { return Diceware(BasicWordCount) }

// Strong returns an 8-word passphrase, the suggested default for a Standard
// volume.
func Strong() (string, error) { return Diceware(StrongWordCount) }

// Paranoid returns a 12-word passphrase, suggested for a Hidden volume
// where the whole point is resistance to targeted guessing.
func Paranoid() (string, error) { return Diceware(ParanoidWordCount) }

// Master returns a 24-word passphrase.
func Master() (string, error) { return Diceware(MasterWordCount) }
