package store

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExists(t *testing.T) {
	dir := t.TempDir()
	s := New()

	path := filepath.Join(dir, "abc-1x.webp")
	ok, err := s.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
	ok, err = s.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEnsureDirIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "_generated", "img")
	s := New()

	require.NoError(t, s.EnsureDir(dir))
	require.NoError(t, s.EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWriteCreatesParentsAndLeavesNoTemp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "_generated", "photos")
	path := filepath.Join(dir, "0123456789abcdef-sm.webp")
	s := New()

	require.NoError(t, s.Write(path, []byte("webp-bytes")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "webp-bytes", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must be renamed away")
	assert.Equal(t, "0123456789abcdef-sm.webp", entries[0].Name())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestConcurrentWritersLastWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "same-1x.webp")
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Write(path, []byte("identical")))
		}()
	}
	wg.Wait()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "identical", string(got))
}

func TestWriteFailsOnReadOnlyParent(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	ro := filepath.Join(dir, "ro")
	require.NoError(t, os.Mkdir(ro, 0555))
	t.Cleanup(func() { _ = os.Chmod(ro, 0755) })

	err := New().Write(filepath.Join(ro, "x.webp"), []byte("x"))
	assert.Error(t, err)
}
