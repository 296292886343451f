// Package process spawns external commands and reports their exit status.
package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"time"
)

// Command describes one process invocation.
type Command struct {
	Name   string
	Args   []string
	Env    []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line.
func (c Command) String() string {
	s := c.Name
	for _, a := range c.Args {
		s += " " + a
	}
	return s
}

// Result is the outcome of a process that started.
type Result struct {
	ExitCode int
	Duration time.Duration
}

// Success reports a zero exit status.
func (r *Result) Success() bool { return r != nil && r.ExitCode == 0 }

// Runner runs commands. A non-nil error means the process could not be
// started; a non-zero exit status is reported in the Result.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// ExitError reports a process that exited with a non-zero status.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// OSRunner runs commands as child processes of the current process.
type OSRunner struct{}

// Run executes cmd and waits for it to exit.
func (OSRunner) Run(ctx context.Context, c Command) (*Result, error) {
	startTime := time.Now()

	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = c.Env
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to execute %s: %w", c.Name, err)
		}
	}

	return &Result{
		ExitCode: exitCode,
		Duration: time.Since(startTime),
	}, nil
}

// Check runs cmd and converts a non-zero exit status into an *ExitError.
func Check(ctx context.Context, r Runner, cmd Command) error {
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return err
	}
	if !res.Success() {
		return &ExitError{Command: cmd.Name, Code: res.ExitCode}
	}
	return nil
}

// Output runs cmd and returns its standard output.
func Output(ctx context.Context, r Runner, cmd Command) (string, *Result, error) {
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	res, err := r.Run(ctx, cmd)
	if err != nil {
		return "", nil, err
	}
	return stdout.String(), res, nil
}
