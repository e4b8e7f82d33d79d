package fsutil

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryFileSystemRoundTrip(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.WriteFile("cache/a.bin", []byte("hello"), 0o644))
	assert.True(t, m.Exists("cache/a.bin"))

	data, err := m.ReadFile("cache/a.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestMemoryFileSystemReadMissing(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	_, err := m.ReadFile("nope.bin")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, m.Exists("nope.bin"))
}

func TestMemoryFileSystemMkdirAll(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.MkdirAll("a/b/c", 0o755))
	assert.True(t, m.Exists("a/b/c"))
	assert.True(t, m.Exists("a/b"))
	assert.True(t, m.Exists("a"))
}

func TestMemoryFileSystemRemove(t *testing.T) {
	t.Parallel()
	m := NewMemoryFileSystem()

	require.NoError(t, m.WriteFile("x.bin", []byte{1}, 0o644))
	require.NoError(t, m.Remove("x.bin"))
	assert.False(t, m.Exists("x.bin"))

	err := m.Remove("x.bin")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestOSFileSystemRoundTrip(t *testing.T) {
	t.Parallel()
	var osfs OSFileSystem
	dir := t.TempDir()

	path := filepath.Join(dir, "sub", "a.bin")
	require.NoError(t, osfs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, osfs.WriteFile(path, []byte("payload"), 0o644))
	assert.True(t, osfs.Exists(path))

	data, err := osfs.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), data)

	require.NoError(t, osfs.Remove(path))
	assert.False(t, osfs.Exists(path))
}
