package fsindex_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/fsindex"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	idx := fsindex.New()
	idx.Insert("docs/readme.md", fsindex.Record{
		Size: 1234, MIME: "text/markdown", CreatedAt: 10, ModifiedAt: 20,
		Extents: []fsindex.Extent{
			{FileOffset: 0, ChunkCount: 1, FirstBlockOffset: 0, FirstBlockSeq: 0},
		},
	})
	idx.Insert("images/a.png", fsindex.Record{
		Size: 999999, MIME: "image/png", CreatedAt: 30, ModifiedAt: 40,
		Extents: []fsindex.Extent{
			{FileOffset: 0, ChunkCount: 16, FirstBlockOffset: 1, FirstBlockSeq: 1},
			{FileOffset: 65536 * 16, ChunkCount: 1, FirstBlockOffset: 17, FirstBlockSeq: 17},
		},
	})

	encoded := fsindex.Encode(idx)
	decoded, err := fsindex.Decode(encoded)
	require.NoError(t, err)

	require.Empty(t, cmp.Diff(idx.List(""), decoded.List("")))
}

func TestEncode_IsDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *fsindex.Index {
		idx := fsindex.New()
		idx.Insert("z", fsindex.Record{Size: 1})
		idx.Insert("a", fsindex.Record{Size: 2})
		idx.Insert("m", fsindex.Record{Size: 3})
		return idx
	}

	require.Equal(t, fsindex.Encode(build()), fsindex.Encode(build()))
}

func TestEncode_EmptyIndex(t *testing.T) {
	t.Parallel()

	encoded := fsindex.Encode(fsindex.New())
	decoded, err := fsindex.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, 0, decoded.Len())
}

func TestDecode_RejectsTruncatedInput(t *testing.T) {
	t.Parallel()

	idx := fsindex.New()
	idx.Insert("a", fsindex.Record{Size: 1, MIME: "x"})
	encoded := fsindex.Encode(idx)

	for _, n := range []int{0, 1, 4, len(encoded) - 1} {
		_, err := fsindex.Decode(encoded[:n])
		require.Error(t, err, "truncating to %d bytes should fail", n)
	}
}

func TestDecode_RejectsTrailingGarbage(t *testing.T) {
	t.Parallel()

	encoded := fsindex.Encode(fsindex.New())
	_, err := fsindex.Decode(append(encoded, 0xff))
	require.Error(t, err)
}

func TestEncodeDecode_FuzzedRecordsRoundTrip(t *testing.T) {
	t.Parallel()

	f := fuzz.New().NilChance(0).NumElements(0, 20)

	idx := fsindex.New()
	var paths []string
	f.NumElements(1, 15).Fuzz(&paths)

	seen := map[string]bool{}
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true

		var size, created, modified int64
		var mime string
		f.Fuzz(&size)
		f.Fuzz(&created)
		f.Fuzz(&modified)
		f.Fuzz(&mime)

		idx.Insert(p, fsindex.Record{
			Size: size, MIME: mime, CreatedAt: created, ModifiedAt: modified,
			Extents: []fsindex.Extent{{FileOffset: 0, ChunkCount: 1}},
		})
	}

	encoded := fsindex.Encode(idx)
	decoded, err := fsindex.Decode(encoded)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(idx.List(""), decoded.List("")))
}
