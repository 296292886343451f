package runner

import (
	"context"
	"io"

	"github.com/felixgeelhaar/makeflow/internal/exec"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

// ProcessNested runs workspace members by starting the runner binary again
// inside the member directory. The child inherits the request env, which
// carries the incremented recursion level.
type ProcessNested struct {
	Executable string
	Runner     process.Runner
	// Flags are passed before the task name.
	Flags    []string
	TaskArgs []string
	Stdout   io.Writer
	Stderr   io.Writer
}

// RunNested implements exec.NestedRunner.
func (p *ProcessNested) RunNested(ctx context.Context, req exec.NestedRequest) error {
	args := []string{"--cwd", req.Dir, "--disable-check-for-updates", "--no-on-error", "--allow-private"}
	args = append(args, p.Flags...)
	args = append(args, req.Task)
	args = append(args, p.TaskArgs...)

	return process.Check(ctx, p.Runner, process.Command{
		Name:   p.Executable,
		Args:   args,
		Env:    req.Env.Environ(),
		Dir:    req.Dir,
		Stdout: p.Stdout,
		Stderr: p.Stderr,
	})
}
