package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/makeflow/internal/log"
)

const makefile = `
[tasks.fmt]
description = "Format sources"
category = "Dev"
command = "cargo"
args = ["fmt"]

[tasks.build]
command = "cargo"
args = ["build"]
dependencies = ["fmt"]
`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MAKEFLOW_HOME", t.TempDir())

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func projectDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Makefile.toml"), []byte(makefile), 0o644))
	return dir
}

func TestPlanCommand(t *testing.T) {
	dir := projectDir(t)

	out, err := execute(t, "plan", "--cwd", dir, "--skip-init-end-tasks", "build")
	require.NoError(t, err)
	assert.Equal(t, "Execution plan for build\n   1. fmt - Format sources\n   2. build\n", out)
}

func TestPrintStepsFlag(t *testing.T) {
	dir := projectDir(t)

	out, err := execute(t, "--cwd", dir, "--print-steps", "--output-format", "yaml", "build")
	require.NoError(t, err)
	assert.Contains(t, out, "root: build")
	assert.Contains(t, out, "role: init")
}

func TestListCommand(t *testing.T) {
	dir := projectDir(t)

	out, err := execute(t, "list", "--cwd", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Dev\n---\nfmt")
	assert.Contains(t, out, "Format sources")
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "makeflow dev\n", out)

	out, err = execute(t, "version", "--output-format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)
}

func TestUnknownFlag(t *testing.T) {
	_, err := execute(t, "--bogus")
	assert.Error(t, err)
}

func TestLevelResolution(t *testing.T) {
	tests := []struct {
		name       string
		cc         CommandContext
		configured string
		want       log.Level
	}{
		{"default", CommandContext{}, "", log.LevelInfo},
		{"configured", CommandContext{}, "verbose", log.LevelDebug},
		{"verbose flag", CommandContext{Verbose: true}, "off", log.LevelDebug},
		{"quiet flag", CommandContext{Quiet: true}, "", log.LevelError},
		{"loglevel wins", CommandContext{LogLevel: "off", Verbose: true}, "", log.LevelOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cc.Level(tt.configured))
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	assert.Equal(t, log.FormatText, loggerConfig(log.LevelDebug, true).Format)

	cfg := loggerConfig(log.LevelError, false)
	assert.Equal(t, log.FormatJSON, cfg.Format)
	assert.Equal(t, log.LevelError, cfg.Level)
}

func TestRunOptions(t *testing.T) {
	cc := &CommandContext{
		Makefile:  "ci.toml",
		Profile:   "production",
		Env:       []string{"A=1"},
		SkipTasks: "^lint",
		NoColor:   true,
		Watch:     true,
	}

	opts := cc.RunOptions()
	assert.Equal(t, "ci.toml", opts.Makefile)
	assert.Equal(t, "production", opts.Profile)
	assert.Equal(t, []string{"A=1"}, opts.Env)
	assert.Equal(t, "^lint", opts.SkipTasks)
	assert.True(t, opts.Watch)
	assert.False(t, opts.Color)
}
