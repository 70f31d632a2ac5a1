package pathsafe_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/internal/pathsafe"
)

func TestValidate_Accepts(t *testing.T) {
	t.Parallel()

	for _, p := range []string{
		"file.txt",
		"dir/file.txt",
		"a/b/c/d.bin",
		"weird but legal name.txt",
		"/hello.txt",
		"/a/b/c",
	} {
		require.NoError(t, pathsafe.Validate("put", p), p)
	}
}

func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":           "",
		"just a slash":    "/",
		"too long":        strings.Repeat("a", pathsafe.MaxLen+1),
		"nul byte":        "file\x00.txt",
		"dot segment":     "a/./b",
		"dotdot segment":  "../../etc/passwd",
		"dotdot after abs": "/../etc/passwd",
		"empty segment":   "a//b",
		"invalid utf8":    "a/\xff\xfe",
	}

	for name, p := range cases {
		p := p
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := pathsafe.Validate("put", p)
			require.Error(t, err)

			var ce *pathsafe.ConstraintError
			require.ErrorAs(t, err, &ce)
			require.Equal(t, "put", ce.Op)
		})
	}
}

func TestClean_ReturnsPathOnSuccess(t *testing.T) {
	t.Parallel()

	out, err := pathsafe.Clean("rename", "docs/readme.md")
	require.NoError(t, err)
	require.Equal(t, "docs/readme.md", out)

	_, err = pathsafe.Clean("rename", "../escape")
	require.Error(t, err)
}

func TestClean_StripsLeadingSlash(t *testing.T) {
	t.Parallel()

	out, err := pathsafe.Clean("put", "/hello.txt")
	require.NoError(t, err)
	require.Equal(t, "hello.txt", out)

	out, err = pathsafe.Clean("rename", "/a/b/c")
	require.NoError(t, err)
	require.Equal(t, "a/b/c", out)
}
