package process

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutSh(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires sh")
	}
}

func TestOSRunnerExitCodes(t *testing.T) {
	skipWithoutSh(t)
	ctx := context.Background()

	res, err := OSRunner{}.Run(ctx, Command{Name: "sh", Args: []string{"-c", "exit 0"}})
	require.NoError(t, err)
	assert.True(t, res.Success())

	res, err = OSRunner{}.Run(ctx, Command{Name: "sh", Args: []string{"-c", "exit 7"}})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
	assert.False(t, res.Success())
}

func TestOSRunnerStartFailure(t *testing.T) {
	_, err := OSRunner{}.Run(context.Background(), Command{Name: "definitely-not-a-real-binary-xyz"})
	assert.Error(t, err)
}

func TestOutputAndEnv(t *testing.T) {
	skipWithoutSh(t)

	out, res, err := Output(context.Background(), OSRunner{}, Command{
		Name: "sh",
		Args: []string{"-c", "printf %s \"$GREETING\""},
		Env:  []string{"GREETING=hello"},
		Dir:  t.TempDir(),
	})
	require.NoError(t, err)
	assert.True(t, res.Success())
	assert.Equal(t, "hello", out)
}

func TestCheck(t *testing.T) {
	skipWithoutSh(t)
	var stderr bytes.Buffer

	err := Check(context.Background(), OSRunner{}, Command{Name: "sh", Args: []string{"-c", "exit 3"}, Stderr: &stderr})
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "sh exited with status 3", exitErr.Error())
}

func TestCommandString(t *testing.T) {
	assert.Equal(t, "cargo install --list", Command{Name: "cargo", Args: []string{"install", "--list"}}.String())
}
