package backup

import (
	"archive/tar"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTarDirectoryIncludesAllFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "nested", "b.txt"), []byte("two"), 0o644))

	dest := filepath.Join(t.TempDir(), "static.tar")
	require.NoError(t, tarDirectory(root, dest))

	names := readTarNames(t, dest)
	assert.ElementsMatch(t, []string{"a.txt", filepath.Join("nested", "b.txt")}, names)
}

func TestTarGzipFileSingleEntry(t *testing.T) {
	src := filepath.Join(t.TempDir(), "dump.rdb")
	require.NoError(t, os.WriteFile(src, []byte("redis snapshot bytes"), 0o644))

	dest := filepath.Join(t.TempDir(), "redis.tar.gz")
	require.NoError(t, tarGzipFile(src, dest))

	f, err := os.Open(dest)
	require.NoError(t, err)
	defer f.Close()

	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	tr := tar.NewReader(gz)
	hdr, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, "dump.rdb", hdr.Name)

	body, err := io.ReadAll(tr)
	require.NoError(t, err)
	assert.Equal(t, "redis snapshot bytes", string(body))
}

func TestCombineArchivesConcatenatesParts(t *testing.T) {
	dir := t.TempDir()
	part1 := filepath.Join(dir, "redis.tar.gz")
	part2 := filepath.Join(dir, "logs.tar.gz")
	require.NoError(t, os.WriteFile(part1, []byte("part one contents"), 0o644))
	require.NoError(t, os.WriteFile(part2, []byte("part two contents"), 0o644))

	dest := filepath.Join(dir, "combined.tar")
	require.NoError(t, combineArchives([]string{part1, part2}, dest))

	names := readTarNames(t, dest)
	assert.Equal(t, []string{"redis.tar.gz", "logs.tar.gz"}, names)
}

func readTarNames(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	tr := tar.NewReader(f)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	return names
}
