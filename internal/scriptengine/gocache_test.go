package scriptengine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/makeflow/internal/log"
)

func fakeBuild(builds *int) BuildFunc {
	return func(source []byte, output string) error {
		*builds++
		return os.WriteFile(output, source, 0o755)
	}
}

func TestGoCacheReusesBinaries(t *testing.T) {
	dir := t.TempDir()
	builds := 0
	cache := NewGoCache(dir, 0)

	first, err := cache.Ensure([]byte("package main"), fakeBuild(&builds))
	require.NoError(t, err)
	second, err := cache.Ensure([]byte("package main"), fakeBuild(&builds))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, cache.Len())
	assert.FileExists(t, first)

	_, err = cache.Ensure([]byte("package main // changed"), fakeBuild(&builds))
	require.NoError(t, err)
	assert.Equal(t, 2, builds)

	reloaded := NewGoCache(dir, 0)
	require.NoError(t, reloaded.LoadManifest())
	assert.Equal(t, 2, reloaded.Len())
	_, err = reloaded.Ensure([]byte("package main"), fakeBuild(&builds))
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestGoCacheRebuildsMissingBinary(t *testing.T) {
	builds := 0
	cache := NewGoCache(t.TempDir(), 0)

	path, err := cache.Ensure([]byte("x"), fakeBuild(&builds))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	_, err = cache.Ensure([]byte("x"), fakeBuild(&builds))
	require.NoError(t, err)
	assert.Equal(t, 2, builds)
}

func TestGoCacheBuildFailure(t *testing.T) {
	cache := NewGoCache(t.TempDir(), 0)
	boom := errors.New("does not compile")

	_, err := cache.Ensure([]byte("x"), func([]byte, string) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
}

func TestGoCachePrune(t *testing.T) {
	builds := 0
	cache := NewGoCache(t.TempDir(), 0)

	path, err := cache.Ensure([]byte("old"), fakeBuild(&builds))
	require.NoError(t, err)
	cache.binaries[Key([]byte("old"))].LastUsed = time.Now().Add(-48 * time.Hour)
	_, err = cache.Ensure([]byte("new"), fakeBuild(&builds))
	require.NoError(t, err)

	pruned, err := cache.Prune(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 1, cache.Len())
	assert.NoFileExists(t, path)
}

func TestKeyIsStable(t *testing.T) {
	assert.Equal(t, Key([]byte("a")), Key([]byte("a")))
	assert.NotEqual(t, Key([]byte("a")), Key([]byte("b")))
	assert.Len(t, Key([]byte("a")), 64)
}

func TestGoCacheResetsCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), []byte("{not json"), 0o644))
	builds := 0
	cache := NewGoCache(dir, 0)
	cache.Logger = log.Discard()

	path, err := cache.Ensure([]byte("package main"), fakeBuild(&builds))
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, 1, builds)

	reloaded := NewGoCache(dir, 0)
	require.NoError(t, reloaded.LoadManifest())
	assert.Equal(t, 1, reloaded.Len())
}

func TestGoCachePruneWithoutMaxAge(t *testing.T) {
	builds := 0
	cache := NewGoCache(t.TempDir(), 0)

	path, err := cache.Ensure([]byte("old"), fakeBuild(&builds))
	require.NoError(t, err)
	cache.binaries[Key([]byte("old"))].LastUsed = time.Now().Add(-48 * time.Hour)

	pruned, err := cache.Prune(0)
	require.NoError(t, err)
	assert.Zero(t, pruned)
	assert.FileExists(t, path)
}
