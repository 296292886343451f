package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveMembers(t *testing.T) {
	dir := t.TempDir()
	for _, d := range []string{"crates/core", "crates/cli", "crates/bench", "tools/gen"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crates", "README.md"), []byte("x"), 0o644))

	members, err := ResolveMembers(dir, []string{"crates/*", "tools/gen", "crates/core"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"crates/bench", "crates/cli", "crates/core", "tools/gen"}, members)

	members, err = ResolveMembers(dir, []string{"crates/*"}, []string{"bench"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"crates/cli", "crates/core"}, members)

	members, err = ResolveMembers(dir, []string{"crates/*", "tools/*"}, nil, []string{"crates/c*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"crates/cli", "crates/core"}, members)
}

func TestSplitFilter(t *testing.T) {
	assert.Equal(t, []string{"a", "b/*"}, SplitFilter(" a ; ;b/* "))
	assert.Nil(t, SplitFilter(""))
}
