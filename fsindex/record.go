// Package fsindex is the in-memory path→record map a volume keeps for its
// files, plus a deterministic binary encoding for persisting it. The
// operations here are pure and hold no lock of their own: the volume engine
// wraps an Index with the readers-writer discipline its concurrency model
// calls for.
package fsindex

// Extent is a contiguous run of chunks belonging to one file. FileOffset is
// the byte position within the file's own content that this extent starts
// at. ChunkCount is how many chunks it spans. FirstBlockOffset is the byte
// position, within the volume's data region, of the extent's first chunk —
// needed to seek there on read, since blocks carry no in-region framing and
// are located only through the index. FirstBlockSeq is the block-sequence
// counter value assigned to that same first chunk: the spec derives a
// chunk's nonce counter from "first_block_offset plus relative index", but
// nothing else pins down how to recover that counter from disk position
// alone once index and data region are separate, so this field makes the
// mapping explicit rather than implicit.
type Extent struct {
	FileOffset       int64
	ChunkCount       uint32
	FirstBlockOffset uint64
	FirstBlockSeq    uint64
}

// Record is everything the index keeps about one file.
type Record struct {
	Size       int64
	MIME       string
	CreatedAt  int64 // unix millis
	ModifiedAt int64 // unix millis
	Extents    []Extent
}

// Entry pairs a path with its record, as returned by List.
type Entry struct {
	Path   string
	Record Record
}
