package atomicfile_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/srv1n/kurpod/internal/atomicfile"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("boom")
}

func TestWriteFile_CreatesNewFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "container.kpod")

	require.NoFileExists(t, target)
	require.NoError(t, atomicfile.WriteFile(target, strings.NewReader("skeleton-bytes")))
	require.FileExists(t, target)
}

func TestWriteFile_ReplacesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "container.kpod")

	require.NoError(t, atomicfile.WriteFile(target, strings.NewReader("version-one")))
	require.NoError(t, atomicfile.WriteFile(target, strings.NewReader("version-two-longer-content")))

	contents, err := filepathReadAll(target)
	require.NoError(t, err)
	require.Equal(t, "version-two-longer-content", contents)
}

func TestWriteFile_LeavesTargetUntouchedOnReadError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "container.kpod")

	require.NoError(t, atomicfile.WriteFile(target, strings.NewReader("original")))

	err := atomicfile.WriteFile(target, failingReader{})
	require.Error(t, err)

	contents, err := filepathReadAll(target)
	require.NoError(t, err)
	require.Equal(t, "original", contents)
}

func filepathReadAll(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
