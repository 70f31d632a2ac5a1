package fsindex

import (
	"encoding/binary"
	"fmt"
)

// Encode serializes idx to a deterministic binary form: records sorted by
// path, every string length-prefixed, every integer fixed-width
// little-endian. Two indexes with equal content always produce byte-
// identical output, which is what makes snapshot comparisons in tests (and
// generation-based tail recovery) meaningful.
//
// A general-purpose serializer (CBOR, JSON, gob) was deliberately not used
// here: none of them guarantee a canonical byte-for-byte encoding of a Go
// map without extra work to force key order and fixed-width integers, and
// that guarantee is exactly what this format exists to provide. Rolling a
// few dozen lines of binary.Write calls is less code than fighting a
// general encoder into canonical form.
func Encode(idx *Index) []byte {
	entries := idx.List("")

	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(len(entries)))

	for _, e := range entries {
		buf = appendString(buf, e.Path)
		buf = appendInt64(buf, e.Record.Size)
		buf = appendString(buf, e.Record.MIME)
		buf = appendInt64(buf, e.Record.CreatedAt)
		buf = appendInt64(buf, e.Record.ModifiedAt)

		var extentCount [4]byte
		binary.LittleEndian.PutUint32(extentCount[:], uint32(len(e.Record.Extents)))
		buf = append(buf, extentCount[:]...)

		for _, ext := range e.Record.Extents {
			buf = appendInt64(buf, ext.FileOffset)
			var rest [4 + 8 + 8]byte
			binary.LittleEndian.PutUint32(rest[0:4], ext.ChunkCount)
			binary.LittleEndian.PutUint64(rest[4:12], ext.FirstBlockOffset)
			binary.LittleEndian.PutUint64(rest[12:20], ext.FirstBlockSeq)
			buf = append(buf, rest[:]...)
		}
	}

	return buf
}

// Decode reverses Encode. It rejects truncated or malformed input rather
// than silently producing a partial index.
func Decode(b []byte) (*Index, error) {
	r := &byteReader{b: b}

	count, err := r.uint32()
	if err != nil {
		return nil, fmt.Errorf("fsindex: reading record count: %w", err)
	}

	idx := New()
	for i := uint32(0); i < count; i++ {
		path, err := r.string()
		if err != nil {
			return nil, fmt.Errorf("fsindex: reading path for record %d: %w", i, err)
		}
		size, err := r.int64()
		if err != nil {
			return nil, fmt.Errorf("fsindex: reading size for %q: %w", path, err)
		}
		mime, err := r.string()
		if err != nil {
			return nil, fmt.Errorf("fsindex: reading mime for %q: %w", path, err)
		}
		createdAt, err := r.int64()
		if err != nil {
			return nil, fmt.Errorf("fsindex: reading created-at for %q: %w", path, err)
		}
		modifiedAt, err := r.int64()
		if err != nil {
			return nil, fmt.Errorf("fsindex: reading modified-at for %q: %w", path, err)
		}
		extentCount, err := r.uint32()
		if err != nil {
			return nil, fmt.Errorf("fsindex: reading extent count for %q: %w", path, err)
		}

		extents := make([]Extent, 0, extentCount)
		for j := uint32(0); j < extentCount; j++ {
			fileOffset, err := r.int64()
			if err != nil {
				return nil, fmt.Errorf("fsindex: reading extent %d file offset for %q: %w", j, path, err)
			}
			chunkCount, err := r.uint32()
			if err != nil {
				return nil, fmt.Errorf("fsindex: reading extent %d chunk count for %q: %w", j, path, err)
			}
			firstBlockOffset, err := r.uint64()
			if err != nil {
				return nil, fmt.Errorf("fsindex: reading extent %d block offset for %q: %w", j, path, err)
			}
			firstBlockSeq, err := r.uint64()
			if err != nil {
				return nil, fmt.Errorf("fsindex: reading extent %d block sequence for %q: %w", j, path, err)
			}
			extents = append(extents, Extent{
				FileOffset:       fileOffset,
				ChunkCount:       chunkCount,
				FirstBlockOffset: firstBlockOffset,
				FirstBlockSeq:    firstBlockSeq,
			})
		}

		idx.records[path] = Record{
			Size:       size,
			MIME:       mime,
			CreatedAt:  createdAt,
			ModifiedAt: modifiedAt,
			Extents:    extents,
		}
	}

	if !r.exhausted() {
		return nil, fmt.Errorf("fsindex: %d trailing bytes after decoding %d records", r.remaining(), count)
	}

	return idx, nil
}

func appendString(buf []byte, s string) []byte {
	var lenBytes [2]byte
	binary.LittleEndian.PutUint16(lenBytes[:], uint16(len(s)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, s...)
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

// byteReader is a small cursor over a byte slice used only by Decode. It
// exists instead of bytes.Reader + encoding/binary.Read because the latter
// allocates per field via reflection; this format is simple enough that a
// manual cursor is both faster and no harder to read.
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) need(n int) error {
	if len(r.b)-r.pos < n {
		return fmt.Errorf("fsindex: truncated input, need %d bytes, have %d", n, len(r.b)-r.pos)
	}
	return nil
}

func (r *byteReader) uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *byteReader) uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *byteReader) int64() (int64, error) {
	v, err := r.uint64()
	return int64(v), err
}

func (r *byteReader) string() (string, error) {
	if err := r.need(2); err != nil {
		return "", err
	}
	n := int(binary.LittleEndian.Uint16(r.b[r.pos:]))
	r.pos += 2
	if err := r.need(n); err != nil {
		return "", err
	}
	s := string(r.b[r.pos : r.pos+n])
	r.pos += n
	return s, nil
}

func (r *byteReader) exhausted() bool {
	return r.pos == len(r.b)
}

func (r *byteReader) remaining() int {
	return len(r.b) - r.pos
}
