package runner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/exec"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

func TestProcessNested(t *testing.T) {
	runner := &fakeRunner{exit: map[string]int{}}
	p := &ProcessNested{
		Executable: "/usr/bin/makeflow",
		Runner:     runner,
		Flags:      []string{"--loglevel", "debug"},
		TaskArgs:   []string{"--release"},
	}
	env := envctx.New(map[string]string{envctx.RecursionKey: "1"})

	err := p.RunNested(context.Background(), exec.NestedRequest{Task: "test", Member: "crates/a", Dir: "/repo/crates/a", Env: env})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/usr/bin/makeflow --cwd /repo/crates/a --disable-check-for-updates --no-on-error --allow-private --loglevel debug test --release",
	}, runner.calls)
	assert.Contains(t, runner.envs[0], envctx.RecursionKey+"=1")
}

func TestProcessNestedFailure(t *testing.T) {
	runner := &fakeRunner{exit: map[string]int{"makeflow": 3}}
	p := &ProcessNested{Executable: "makeflow", Runner: runner}

	err := p.RunNested(context.Background(), exec.NestedRequest{Task: "test", Dir: "a", Env: envctx.New(nil)})

	var exitErr *process.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}
