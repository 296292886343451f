package scriptengine

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/flowscript"
	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/process"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// Request is one script execution.
type Request struct {
	// Task names the task the script belongs to, for diagnostics.
	Task       string
	Kind       Kind
	Lines      []string
	Runner     string
	RunnerArgs []string
	Extension  string
	Args       []string
	Env        *envctx.Context
	Dir        string
	Stdout     io.Writer
	Stderr     io.Writer
}

// Dispatcher executes scripts with the engine selected by their Kind.
type Dispatcher struct {
	Runner   process.Runner
	Platform task.Platform
	// TempDir holds generated script files; empty means os.TempDir().
	TempDir string
	GoCache *GoCache
	// Tasks lets flowscript scripts run tasks of the current flow.
	Tasks  flowscript.TaskRunner
	Logger *log.Logger
}

// NewDispatcher creates a dispatcher spawning processes with runner.
func NewDispatcher(runner process.Runner, platform task.Platform) *Dispatcher {
	return &Dispatcher{Runner: runner, Platform: platform}
}

// Execute runs the script of req. A nil error means the script succeeded.
func (d *Dispatcher) Execute(ctx context.Context, req Request) error {
	if req.Env == nil {
		req.Env = envctx.New(nil)
	}
	if req.Stdout == nil {
		req.Stdout = os.Stdout
	}
	if req.Stderr == nil {
		req.Stderr = os.Stderr
	}
	if req.Kind == "" {
		req.Kind = Detect(req.Runner, req.Lines)
	}

	d.logger().Debug("running script", "task", req.Task, "engine", string(req.Kind))

	switch req.Kind {
	case KindOS:
		return d.runOS(ctx, req)
	case KindShell:
		return d.runShell(ctx, req)
	case KindFlowscript:
		return d.runFlowscript(ctx, req)
	case KindGo:
		return d.runGo(ctx, req)
	case KindLua:
		return d.runLua(ctx, req)
	case KindGeneric:
		return d.runGeneric(ctx, req)
	case KindShebang:
		return d.runShebang(ctx, req)
	default:
		return errors.Newf(errors.ErrCodeEngineFailed, "unknown script engine %q", req.Kind)
	}
}

// RunCondition runs a condition script with its detected engine and reports
// whether it exited successfully.
func (d *Dispatcher) RunCondition(ctx context.Context, script *task.Script, ec *envctx.Context) (bool, error) {
	lines, err := LoadLines(script, "")
	if err != nil {
		return false, err
	}
	err = d.Execute(ctx, Request{Task: "condition", Lines: lines, Env: ec, Stdout: io.Discard})
	if err == nil {
		return true, nil
	}
	if isExitFailure(err) {
		return false, nil
	}
	return false, err
}

// Capture runs the script with the OS engine and returns its standard
// output without the trailing newline.
func (d *Dispatcher) Capture(ctx context.Context, lines []string, ec *envctx.Context, dir string) (string, error) {
	var out strings.Builder
	err := d.Execute(ctx, Request{Task: "env", Kind: Detect("", lines), Lines: lines, Env: ec, Dir: dir, Stdout: &out})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out.String(), "\r\n"), nil
}

func (d *Dispatcher) runOS(ctx context.Context, req Request) error {
	if d.Platform == task.Windows {
		return d.runFile(ctx, req, "cmd", []string{"/C"}, ".bat", withBatchHeader(req.Lines))
	}
	return d.runFile(ctx, req, "sh", nil, ".sh", req.Lines)
}

func (d *Dispatcher) runShell(ctx context.Context, req Request) error {
	if d.Platform == task.Windows {
		return d.runFile(ctx, req, "cmd", []string{"/C"}, ".bat", ToBatch(req.Lines))
	}
	return d.runFile(ctx, req, "sh", nil, ".sh", req.Lines)
}

func (d *Dispatcher) runGeneric(ctx context.Context, req Request) error {
	ext := req.Extension
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return d.runFile(ctx, req, req.Runner, req.RunnerArgs, ext, req.Lines)
}

func (d *Dispatcher) runShebang(ctx context.Context, req Request) error {
	sb, ok := ParseShebang(req.Lines)
	if !ok {
		return errors.New(errors.ErrCodeEngineFailed, "script has no shebang line")
	}
	return d.runFile(ctx, req, sb.Runner, sb.Args, req.Extension, req.Lines)
}

func (d *Dispatcher) runFlowscript(ctx context.Context, req Request) error {
	err := flowscript.Run(ctx, StripShebang(req.Lines), flowscript.Options{
		Env:    req.Env,
		Args:   req.Args,
		Stdout: req.Stdout,
		Stderr: req.Stderr,
		Dir:    req.Dir,
		Tasks:  d.Tasks,

		Process: d.Runner,
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeEngineFailed, fmt.Sprintf("flowscript of task %s failed", req.Task), err)
	}
	return nil
}

// runFile writes lines to a temporary file and runs
// runner runnerArgs... file args...
func (d *Dispatcher) runFile(ctx context.Context, req Request, runner string, runnerArgs []string, ext string, lines []string) error {
	file, err := d.writeScript(lines, ext)
	if err != nil {
		return err
	}
	defer os.Remove(file)

	args := append(append(append([]string{}, runnerArgs...), file), req.Args...)
	return d.spawn(ctx, req, process.Command{Name: runner, Args: args})
}

func (d *Dispatcher) spawn(ctx context.Context, req Request, cmd process.Command) error {
	cmd.Env = req.Env.Environ()
	cmd.Dir = req.Dir
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr

	if err := process.Check(ctx, d.Runner, cmd); err != nil {
		if _, ok := err.(*process.ExitError); ok {
			return errors.Wrap(errors.ErrCodeEngineFailed, fmt.Sprintf("script of task %s failed", req.Task), err)
		}
		return errors.Wrap(errors.ErrCodeSpawnFailed, fmt.Sprintf("unable to start %s for task %s", cmd.Name, req.Task), err)
	}
	return nil
}

func (d *Dispatcher) writeScript(lines []string, ext string) (string, error) {
	dir := d.TempDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "makeflow")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeDirectoryFailed, "create script directory", err)
	}

	path := filepath.Join(dir, uuid.NewString()+ext)
	body := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(path, []byte(body), 0o700); err != nil {
		return "", errors.Wrap(errors.ErrCodeFileWriteFailed, "write script file", err)
	}
	return path, nil
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return log.DefaultLogger()
}

func withBatchHeader(lines []string) []string {
	if len(lines) > 0 && strings.EqualFold(strings.TrimSpace(lines[0]), "@echo off") {
		return lines
	}
	return append([]string{"@echo off"}, lines...)
}

func isExitFailure(err error) bool {
	var procErr *process.ExitError
	var scriptErr *flowscript.ExitError
	return stderrors.As(err, &procErr) || stderrors.As(err, &scriptErr)
}

// LoadLines returns the lines of script, reading its file relative to dir
// when it references one.
func LoadLines(script *task.Script, dir string) ([]string, error) {
	if script == nil {
		return nil, nil
	}
	if script.File == "" {
		return script.Lines, nil
	}

	path := script.File
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFoundError(path)
		}
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read script file", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileReadFailed, "read script file", err)
	}
	return append(lines, script.Lines...), nil
}
