package runner

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/makeflow/internal/log"
)

func TestIgnored(t *testing.T) {
	root := filepath.FromSlash("/repo")

	assert.True(t, ignored(root, filepath.FromSlash("/repo/.git/index")))
	assert.True(t, ignored(root, filepath.FromSlash("/repo/target/debug/app")))
	assert.True(t, ignored(root, filepath.FromSlash("/repo/crates/a/target/x")))
	assert.False(t, ignored(root, filepath.FromSlash("/repo/src/main.rs")))
	assert.False(t, ignored(root, filepath.FromSlash("/repo/targets.txt")))
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	runs := 0
	err := Watch(ctx, t.TempDir(), 10*time.Millisecond, log.Discard(), func(context.Context) error {
		runs++
		return nil
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, runs)
}
