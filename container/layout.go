// Package container reads and writes the fixed-layout header region of a
// kurpod container file: the two 4 KiB header blocks that sit at the start
// of the file, one per volume, each holding a KDF salt, KDF parameters, an
// AEAD nonce, and a sealed volume descriptor.
//
// Headers are written exactly once, at Init, and never rewritten after: a
// snapshot-diffing adversary watching the container file over time must
// never see either header block change, or the mere fact of a later write
// would leak that the container is "in use". All mutable per-volume state
// therefore lives in the data region (see the volume package), not here.
package container

// HeaderSize is the fixed size of one header block, Hs == Hh in the spec.
const HeaderSize = 4096

// VolumeKind identifies which of the two volumes a descriptor describes.
type VolumeKind uint8

const (
	Standard VolumeKind = iota
	Hidden
)

func (k VolumeKind) String() string {
	switch k {
	case Standard:
		return "standard"
	case Hidden:
		return "hidden"
	default:
		return "unknown"
	}
}

// MagicTag identifies a genuine (non-decoy) descriptor once opened. It never
// appears in clear on disk: it lives inside the AEAD-sealed descriptor, not
// in the header's plaintext fields.
var MagicTag = [8]byte{'K', 'P', 'O', 'D', 0, 0, 0, 1}

// Layout describes where the two header blocks and the two data regions sit
// within a container file, chosen once at Init and fixed for the file's
// lifetime (invariant I2: growing past the hidden region's start is
// refused).
type Layout struct {
	StandardHeaderOffset int64
	HiddenHeaderOffset   int64
	StandardRegionOffset int64
	StandardRegionEnd    int64 // exclusive; == HiddenRegionOffset
	HiddenRegionOffset   int64
	HiddenRegionEnd      int64 // exclusive; == total file size
}

// NewLayout computes the fixed byte layout for a container whose standard
// and hidden data regions are to be given the requested capacities.
func NewLayout(standardCapacity, hiddenCapacity int64) Layout {
	stdHeader := int64(0)
	hiddenHeader := int64(HeaderSize)
	stdRegion := hiddenHeader + HeaderSize
	stdEnd := stdRegion + standardCapacity
	hiddenRegion := stdEnd
	hiddenEnd := hiddenRegion + hiddenCapacity

	return Layout{
		StandardHeaderOffset: stdHeader,
		HiddenHeaderOffset:   hiddenHeader,
		StandardRegionOffset: stdRegion,
		StandardRegionEnd:    stdEnd,
		HiddenRegionOffset:   hiddenRegion,
		HiddenRegionEnd:      hiddenEnd,
	}
}

// RegionOffset returns the start of the data region belonging to kind.
func (l Layout) RegionOffset(kind VolumeKind) int64 {
	if kind == Hidden {
		return l.HiddenRegionOffset
	}
	return l.StandardRegionOffset
}

// RegionEnd returns the exclusive end of the data region belonging to kind.
func (l Layout) RegionEnd(kind VolumeKind) int64 {
	if kind == Hidden {
		return l.HiddenRegionEnd
	}
	return l.StandardRegionEnd
}

// RegionCapacity returns the usable byte capacity of the data region
// belonging to kind.
func (l Layout) RegionCapacity(kind VolumeKind) int64 {
	return l.RegionEnd(kind) - l.RegionOffset(kind)
}

// HeaderOffset returns the start of the header block belonging to kind.
func (l Layout) HeaderOffset(kind VolumeKind) int64 {
	if kind == Hidden {
		return l.HiddenHeaderOffset
	}
	return l.StandardHeaderOffset
}

// TotalSize returns the full container file size this layout describes.
func (l Layout) TotalSize() int64 {
	return l.HiddenRegionEnd
}
