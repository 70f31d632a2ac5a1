// Package randomness provides CSPRNG-backed helpers used for salts, nonce
// material, and the uniformly-random hidden-header fill.
package randomness

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// initialize the ASCII characters
var ascii = func() string {
	asciiBytes := make([]byte, 94)
	for i := range asciiBytes {
		asciiBytes[i] = byte(i + 33)
	}
	return string(asciiBytes)
}()

// Bytes generates a new byte slice of the given size using crypto/rand.
func Bytes(size int) ([]byte, error) {
	b := make([]byte, size)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, fmt.Errorf("error generating bytes: %w", err)
	}
	return b, nil
}

// MustBytes is like Bytes but panics on error. Used only for fixed-size,
// process-fatal randomness (a failing CSPRNG is not something callers can
// meaningfully recover from).
func MustBytes(size int) []byte {
	b, err := Bytes(size)
	if err != nil {
		panic(err)
	}
	return b
}

// String returns a random string of the given length using the runes in
// chars.
func String(length int, chars string) (string, error) {
	result := make([]rune, length)
	runes := []rune(chars)
	x := int64(len(runes))
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(x))
		if err != nil {
			return "", fmt.Errorf("error creating random number: %w", err)
		}
		result[i] = runes[num.Int64()]
	}
	return string(result), nil
}

// Hex returns a random lowercase hexadecimal string of the given length.
func Hex(length int) (string, error) {
	return String(length, "0123456789abcdef")
}

// ASCII returns a random printable-ASCII string of the given length.
func ASCII(length int) (string, error) {
	return String(length, ascii)
}
