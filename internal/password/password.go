// Package password generates high-entropy random character passwords, for
// the same test-fixture and suggested-passphrase purposes as the
// internal/passphrase package.
package password

import (
	"fmt"

	"github.com/sethvargo/go-password/password"
)

// Profile bundles the parameters Generate needs.
type Profile struct {
	Length      int
	NumDigits   int
	NumSymbol   int
	NoUpper     bool
	AllowRepeat bool
}

var (
	ProfileParanoid = &Profile{Length: 64, NumDigits: 10, NumSymbol: 10, AllowRepeat: true}
	ProfileNoSymbol = &Profile{Length: 32, NumDigits: 10, NumSymbol: 0, AllowRepeat: true}
	ProfileStrong   = &Profile{Length: 32, NumDigits: 10, NumSymbol: 10, AllowRepeat: true}
)

// Generate produces a random password of length characters containing
// exactly numDigits digits and numSymbol symbols.
func Generate(length, numDigits, numSymbol int, noUpper, allowRepeat bool) (string, error) {
	out, err := password.Generate(length, numDigits, numSymbol, noUpper, allowRepeat)
	if err != nil {
		return "", fmt.Errorf("password: generating: %w", err)
	}
	return out, nil
}

// FromProfile generates a password following p.
func FromProfile(p *Profile) (string, error) {
	if p == nil {
		return "", fmt.Errorf("password: nil profile")
	}
	return Generate(p.Length, p.NumDigits, p.NumSymbol, p.NoUpper, p.AllowRepeat)
}

// Paranoid generates a password following ProfileParanoid.
func Paranoid() (string, error) { return FromProfile(ProfileParanoid) }

// Strong generates a password following ProfileStrong.
func Strong() (string, error) { return FromProfile(ProfileStrong) }

// NoSymbol generates a password following ProfileNoSymbol.
func NoSymbol() (string, error) { return FromProfile(ProfileNoSymbol) }
