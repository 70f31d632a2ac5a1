package container

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Descriptor is the plaintext record sealed inside a header block. It
// carries only immutable geometry: where this volume's data region sits and
// how large it is, plus the identifiers the chunk and tail codecs need. The
// current index location is deliberately absent — it changes on every
// persist, and a descriptor field that changed would force a header
// rewrite, defeating the "headers never change after init" invariant. That
// location instead lives in a tail trailer inside the data region itself
// (see the volume package).
//
// Encoded as a CBOR array with integer keys, matching the compact,
// versioned-by-position style the rest of this module's header metadata
// uses.
type Descriptor struct {
	_ struct{} `cbor:",toarray"`

	Magic      [8]byte    `cbor:"1,keyasint"`
	Kind       VolumeKind `cbor:"2,keyasint"`
	VolumeID   [16]byte   `cbor:"3,keyasint"`
	RegionOff  uint64     `cbor:"4,keyasint"`
	RegionCap  uint64     `cbor:"5,keyasint"`
	Generation uint32     `cbor:"6,keyasint"`
}

// Marshal encodes the descriptor to CBOR.
func (d Descriptor) Marshal() ([]byte, error) {
	out, err := cbor.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("container: marshaling descriptor: %w", err)
	}
	return out, nil
}

// UnmarshalDescriptor decodes a CBOR-encoded descriptor and checks its magic
// tag. A decode that succeeds but produces the wrong magic means the AEAD
// open happened to succeed against the wrong key material in a way the tag
// alone didn't catch (practically impossible, but checked anyway since it's
// free and it is the one place "this is a real kurpod descriptor, not noise
// that merely happened to authenticate" is verified).
func UnmarshalDescriptor(b []byte) (Descriptor, error) {
	var d Descriptor
	if err := cbor.Unmarshal(b, &d); err != nil {
		return Descriptor{}, fmt.Errorf("container: unmarshaling descriptor: %w", err)
	}
	if d.Magic != MagicTag {
		return Descriptor{}, fmt.Errorf("container: descriptor has wrong magic tag")
	}
	return d, nil
}
