package scriptengine

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/process"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

func skipWithoutSh(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func newTestDispatcher(t *testing.T) *Dispatcher {
	d := NewDispatcher(process.OSRunner{}, task.Linux)
	d.TempDir = t.TempDir()
	d.Logger = log.Discard()
	return d
}

func testEnv(vars map[string]string) *envctx.Context {
	ec := envctx.FromOS()
	for k, v := range vars {
		ec.Set(k, v)
	}
	return ec
}

func TestExecuteOSScript(t *testing.T) {
	skipWithoutSh(t)
	var out bytes.Buffer

	err := newTestDispatcher(t).Execute(context.Background(), Request{
		Task:   "greet",
		Lines:  []string{"echo \"$GREETING $1\""},
		Args:   []string{"world"},
		Env:    testEnv(map[string]string{"GREETING": "hello"}),
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world\n", out.String())
}

func TestExecuteRunsInDir(t *testing.T) {
	skipWithoutSh(t)
	dir := t.TempDir()
	var out bytes.Buffer

	err := newTestDispatcher(t).Execute(context.Background(), Request{
		Kind:   KindShell,
		Lines:  []string{"touch marker"},
		Env:    testEnv(nil),
		Dir:    dir,
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "marker"))
}

func TestExecuteFailureIsEngineError(t *testing.T) {
	skipWithoutSh(t)

	err := newTestDispatcher(t).Execute(context.Background(), Request{
		Task:   "broken",
		Lines:  []string{"exit 4"},
		Env:    testEnv(nil),
		Stdout: &bytes.Buffer{},
		Stderr: &bytes.Buffer{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEngineFailed))
	assert.True(t, isExitFailure(err))
}

func TestExecuteGenericAndShebang(t *testing.T) {
	skipWithoutSh(t)
	d := newTestDispatcher(t)

	var out bytes.Buffer
	err := d.Execute(context.Background(), Request{
		Runner:    "sh",
		Extension: "sh",
		Lines:     []string{"echo generic $1"},
		Args:      []string{"arg"},
		Env:       testEnv(nil),
		Stdout:    &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "generic arg\n", out.String())

	out.Reset()
	err = d.Execute(context.Background(), Request{
		Lines:  []string{"#!/bin/sh -e", "echo shebang"},
		Env:    testEnv(nil),
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "shebang\n", out.String())
}

func TestExecuteMissingRunner(t *testing.T) {
	err := newTestDispatcher(t).Execute(context.Background(), Request{
		Runner: "definitely-not-a-real-runner-xyz",
		Lines:  []string{"x"},
		Stdout: &bytes.Buffer{},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeSpawnFailed))
}

func TestExecuteRemovesScriptFiles(t *testing.T) {
	skipWithoutSh(t)
	d := newTestDispatcher(t)

	err := d.Execute(context.Background(), Request{Lines: []string{"true"}, Env: testEnv(nil), Stdout: &bytes.Buffer{}})
	require.NoError(t, err)

	entries, err := os.ReadDir(d.TempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type recordingTasks struct {
	names []string
}

func (r *recordingTasks) RunTask(_ context.Context, name string, _ *envctx.Context) error {
	r.names = append(r.names, name)
	return nil
}

func TestExecuteFlowscript(t *testing.T) {
	d := newTestDispatcher(t)
	tasks := &recordingTasks{}
	d.Tasks = tasks
	var out bytes.Buffer

	err := d.Execute(context.Background(), Request{
		Lines:  []string{"#!@flowscript", "echo hi $1 ${NAME}", "run_task build"},
		Args:   []string{"there"},
		Env:    envctx.New(map[string]string{"NAME": "flow"}),
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "hi there flow\n", out.String())
	assert.Equal(t, []string{"build"}, tasks.names)
}

func TestExecuteLua(t *testing.T) {
	d := newTestDispatcher(t)
	env := envctx.New(map[string]string{"NAME": "lua"})
	var out bytes.Buffer

	err := d.Execute(context.Background(), Request{
		Runner: "@lua",
		Lines: []string{
			`setenv("LOCAL", "x")`,
			`print("hello", getenv("NAME"), arg[1], getenv("LOCAL"), getenv("MISSING"))`,
		},
		Args:   []string{"one"},
		Env:    env,
		Stdout: &out,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello\tlua\tone\tx\tnil\n", out.String())
	assert.False(t, env.Has("LOCAL"))
}

func TestExecuteLuaExitAndErrors(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	err := d.Execute(ctx, Request{Runner: "@lua", Lines: []string{"exit(0)", `print("unreachable")`}, Stdout: &bytes.Buffer{}})
	assert.NoError(t, err)

	err = d.Execute(ctx, Request{Runner: "@lua", Lines: []string{"exit(2)"}, Stdout: &bytes.Buffer{}})
	require.Error(t, err)
	assert.True(t, isExitFailure(err))

	err = d.Execute(ctx, Request{Runner: "@lua", Lines: []string{"this is not lua"}, Stdout: &bytes.Buffer{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeEngineFailed))
	assert.False(t, isExitFailure(err))
}

type fakeRunner struct {
	commands []process.Command
	exit     map[string]int
}

func (f *fakeRunner) Run(_ context.Context, cmd process.Command) (*process.Result, error) {
	f.commands = append(f.commands, cmd)
	if cmd.Name == "go" {
		output := cmd.Args[2]
		if err := os.WriteFile(output, []byte("binary"), 0o755); err != nil {
			return nil, err
		}
	}
	return &process.Result{ExitCode: f.exit[cmd.Name]}, nil
}

func TestExecuteGoCompilesOnce(t *testing.T) {
	runner := &fakeRunner{}
	d := newTestDispatcher(t)
	d.Runner = runner
	d.GoCache = NewGoCache(t.TempDir(), 0)
	req := Request{Runner: "@go", Lines: []string{`fmt.Println("hi")`}, Args: []string{"a"}, Stdout: &bytes.Buffer{}}

	require.NoError(t, d.Execute(context.Background(), req))
	require.NoError(t, d.Execute(context.Background(), req))

	require.Len(t, runner.commands, 3)
	assert.Equal(t, "go", runner.commands[0].Name)
	assert.Equal(t, "build", runner.commands[0].Args[0])
	assert.Equal(t, runner.commands[1].Name, runner.commands[2].Name)
	assert.Equal(t, []string{"a"}, runner.commands[1].Args)
}

func TestExecuteGoCompileFailure(t *testing.T) {
	runner := &fakeRunner{exit: map[string]int{"go": 1}}
	d := newTestDispatcher(t)
	d.Runner = runner
	d.GoCache = NewGoCache(t.TempDir(), 0)

	err := d.Execute(context.Background(), Request{Runner: "@go", Lines: []string{"broken"}, Stdout: &bytes.Buffer{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCompileFailed))
	assert.Equal(t, 0, d.GoCache.Len())
}

func TestGoSource(t *testing.T) {
	full := []string{"package main", "", "func main() {}"}
	assert.Equal(t, "package main\n\nfunc main() {}\n", string(GoSource(full)))

	got := string(GoSource([]string{`import "fmt"`, `fmt.Println("hi")`}))
	assert.Equal(t, "package main\n\nimport \"fmt\"\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n", got)

	got = string(GoSource([]string{"import (", `	"os"`, ")", "os.Exit(0)"}))
	assert.True(t, strings.HasPrefix(got, "package main\n\nimport (\n\t\"os\"\n)\n\nfunc main() {\n"))
}

func TestRunCondition(t *testing.T) {
	skipWithoutSh(t)
	d := newTestDispatcher(t)
	ctx := context.Background()

	ok, err := d.RunCondition(ctx, &task.Script{Lines: []string{"exit 0"}}, testEnv(nil))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.RunCondition(ctx, &task.Script{Lines: []string{"exit 1"}}, testEnv(nil))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.RunCondition(ctx, &task.Script{Lines: []string{"#!@flowscript", "exit 1"}}, testEnv(nil))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCapture(t *testing.T) {
	skipWithoutSh(t)

	out, err := newTestDispatcher(t).Capture(context.Background(), []string{"echo captured"}, testEnv(nil), "")
	require.NoError(t, err)
	assert.Equal(t, "captured", out)
}

func TestLoadLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.sh"), []byte("echo one\necho two\n"), 0o644))

	lines, err := LoadLines(&task.Script{File: "build.sh"}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"echo one", "echo two"}, lines)

	lines, err = LoadLines(&task.Script{Lines: []string{"inline"}}, dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"inline"}, lines)

	_, err = LoadLines(&task.Script{File: "missing.sh"}, dir)
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))

	lines, err = LoadLines(nil, dir)
	assert.NoError(t, err)
	assert.Nil(t, lines)
}
