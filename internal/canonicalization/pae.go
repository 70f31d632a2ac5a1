// Package canonicalization provides a pre-authentication-encoding primitive
// used to build unambiguous AAD values out of several independent pieces
// (e.g. volume id, block sequence, salt) before they are bound into an AEAD
// seal/open call.
package canonicalization

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	maxPieceSize  = 64 * 1024 // 64Kb
	maxPieceCount = 25
)

var (
	// ErrPieceTooLarge is raised when one piece size is larger than the accepted size.
	ErrPieceTooLarge = errors.New("at least one piece is too large")
	// ErrTooManyPieces is raised when the pieces count is larger than the accepted count.
	ErrTooManyPieces = errors.New("too many pieces provided")
)

// PreAuthenticationEncoding implements the pre-authenticated-encoding
// primitive used to encode several independent pieces of data before they
// are hashed, MAC'd, or used as AEAD additional data.
//
// Canonicalization avoids confusion when several separate pieces of data are
// concatenated into a single authenticated buffer: without explicit framing,
// a value controlled by one piece could bleed into the next piece's meaning.
// This implementation follows the PASETO pre-authentication-encoding scheme:
// https://github.com/paseto-standard/paseto-spec/blob/master/docs/01-Protocol-Versions/Common.md#authentication-padding
//
// The process accepts at most maxPieceCount pieces of at most maxPieceSize
// bytes each.
func PreAuthenticationEncoding(pieces ...[]byte) ([]byte, error) {
	if len(pieces) == 0 {
		return nil, nil
	}
	if len(pieces) > maxPieceCount {
		return nil, fmt.Errorf("unable to prepare canonical form: %w", ErrTooManyPieces)
	}

	// PieceCount (8B) || ( PieceLen (8B) || Piece (*B) )*
	bufLen := 8
	for i := range pieces {
		if len(pieces[i]) > maxPieceSize {
			return nil, fmt.Errorf("unable to prepare canonical form: %w", ErrPieceTooLarge)
		}
		bufLen += 8 + len(pieces[i])
	}

	output := make([]byte, bufLen)
	binary.LittleEndian.PutUint64(output, uint64(len(pieces)))

	offset := 8
	for i := range pieces {
		binary.LittleEndian.PutUint64(output[offset:], uint64(len(pieces[i])))
		offset += 8
		copy(output[offset:], pieces[i])
		offset += len(pieces[i])
	}

	return output, nil
}
