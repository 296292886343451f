// Package exec runs planned flows: it evaluates conditions, installs
// requirements and dispatches each task to a command, a script engine or a
// nested flow.
package exec

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/makeflow/internal/condition"
	"github.com/felixgeelhaar/makeflow/internal/descriptor"
	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/functions"
	"github.com/felixgeelhaar/makeflow/internal/installer"
	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/plan"
	"github.com/felixgeelhaar/makeflow/internal/process"
	"github.com/felixgeelhaar/makeflow/internal/scriptengine"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// Task meta variables set before each task runs.
const (
	CurrentTaskNameKey = "MAKEFLOW_CURRENT_TASK_NAME"
	CurrentTaskTypeKey = "MAKEFLOW_CURRENT_TASK_TYPE"
	TaskArgsKey        = "MAKEFLOW_TASK_ARGS"
)

// taskArgsPlaceholder in a command's args is replaced by the task arguments.
const taskArgsPlaceholder = "${@}"

// NestedRequest asks for the flow of Task to run in a workspace member.
type NestedRequest struct {
	Task   string
	Member string
	Dir    string
	// Env already carries the incremented recursion level.
	Env *envctx.Context
}

// NestedRunner runs workspace member flows.
type NestedRunner interface {
	RunNested(ctx context.Context, req NestedRequest) error
}

// Executor runs flows sequentially, one task at a time.
type Executor struct {
	Runner     process.Runner
	Scripts    *scriptengine.Dispatcher
	Conditions *condition.Evaluator
	Installer  *installer.Installer
	Env        *descriptor.EnvEvaluator
	Planner    *plan.Planner
	Nested     NestedRunner

	// Dir is the working directory tasks run in unless they set cwd.
	Dir string
	// TaskArgs are the arguments given after the task name.
	TaskArgs []string
	Stdout   io.Writer
	Stderr   io.Writer
	Logger   *log.Logger
	RunID    string
}

// NewExecutor wires an executor and its collaborators around runner.
func NewExecutor(planner *plan.Planner, runner process.Runner, dir string) *Executor {
	platform := planner.Normalizer().Platform()
	scripts := scriptengine.NewDispatcher(runner, platform)

	e := &Executor{
		Runner:  runner,
		Scripts: scripts,
		Planner: planner,
		Dir:     dir,
		RunID:   uuid.NewString(),
	}
	e.Conditions = &condition.Evaluator{Platform: platform, Dir: dir, Scripts: scripts}
	e.Installer = installer.New(runner, scripts, installer.DefaultConfig())
	e.Env = &descriptor.EnvEvaluator{Scripts: scripts, Conditions: e.Conditions, Dir: dir}
	scripts.Tasks = e
	return e
}

// SetLogger makes the executor and its collaborators log to logger.
func (e *Executor) SetLogger(logger *log.Logger) {
	e.Logger = logger
	if e.Scripts != nil {
		e.Scripts.Logger = logger
	}
	if e.Conditions != nil {
		e.Conditions.Logger = logger
	}
	if e.Installer != nil {
		e.Installer.Logger = logger
	}
}

// SetOutput sets where task output goes.
func (e *Executor) SetOutput(stdout, stderr io.Writer) {
	e.Stdout, e.Stderr = stdout, stderr
	if e.Installer != nil {
		e.Installer.Stdout, e.Installer.Stderr = stdout, stderr
	}
}

// Execute runs the steps of flow in order with ec. The first failure that
// is not ignored stops the flow: later steps, including the end step, are
// not run, and the failure is returned.
func (e *Executor) Execute(ctx context.Context, flow *plan.Flow, ec *envctx.Context) (*ExecutionResult, error) {
	result := &ExecutionResult{
		RunID:      e.RunID,
		Root:       flow.Root,
		TotalTasks: len(flow.Steps),
		StartTime:  time.Now(),
	}
	defer func() { result.EndTime = time.Now() }()

	if len(e.TaskArgs) > 0 {
		ec.Set(TaskArgsKey, strings.Join(e.TaskArgs, ";"))
	}

	for _, step := range flow.Steps {
		if err := ctx.Err(); err != nil {
			result.Err = err
			return result, err
		}

		r := e.runStep(ctx, step, ec)
		result.add(r)
		if r.Outcome.Fatal() {
			result.FailedTask = r.Task
			result.Err = r.Outcome.Err
			return result, r.Outcome.Err
		}
	}
	return result, nil
}

func (e *Executor) runStep(ctx context.Context, step plan.Step, ec *envctx.Context) *Result {
	r := &Result{Task: step.Name, Role: step.Role, Member: step.Member, StartedAt: time.Now()}
	t := step.Task
	if step.Role == plan.RoleMember {
		r.Outcome = e.runMember(ctx, step, ec)
	} else {
		r.Outcome = e.ExecuteTask(ctx, &t, ec)
	}
	r.Duration = time.Since(r.StartedAt)
	return r
}

// ExecuteTask runs one normalized task: its env is applied to ec, then its
// condition decides whether it runs, then its install requirement is
// ensured, then its directive runs.
func (e *Executor) ExecuteTask(ctx context.Context, t *task.Task, ec *envctx.Context) Outcome {
	logger := e.logger().With("task", t.Name, "run_id", e.RunID)
	ctx, err := enterTask(ctx, t.Name)
	if err != nil {
		return e.settle(logger, t, failed(PhaseExecution, err))
	}
	if t.IsDeprecated() {
		logger.Warn(deprecationMessage(t))
	}

	ec.Set(CurrentTaskNameKey, t.Name)
	ec.Set(CurrentTaskTypeKey, string(t.Kind()))
	if e.Env != nil {
		if err := e.Env.Apply(ctx, t.Env, ec); err != nil {
			return e.settle(logger, t, failed(PhaseExecution, err))
		}
	}
	dir := e.taskDir(t, ec)

	ok, err := e.conditions().Evaluate(ctx, t.Condition, t.ConditionScript, ec)
	if err != nil {
		if !t.IsForced() {
			return e.settle(logger, t, failed(PhaseCondition, err))
		}
		logger.WithError(err).Warn("condition evaluation failed, running forced task", "phase", PhaseCondition)
		ok = true
	}
	if !ok {
		logger.Info("skipping task, condition not met", "phase", PhaseCondition)
		return skipped()
	}

	if req, has := installer.FromTask(t, dir); has && e.Installer != nil {
		if !e.Installer.EnsureInstalled(ctx, req, ec) {
			err := errors.NewInstallFailedError(t.Name, req.String())
			if !t.IsForced() {
				return e.settle(logger, t, failed(PhaseInstall, err))
			}
			logger.Warn("install failed, running forced task", "phase", PhaseInstall, "requirement", req.String())
		}
	}

	logger.Info("running task", "phase", PhaseExecution, "kind", string(t.Kind()))
	if err := e.dispatch(ctx, t, ec, dir); err != nil {
		return e.settle(logger, t, failed(PhaseExecution, errors.NewTaskFailedError(t.Name, err)))
	}
	return success()
}

func (e *Executor) settle(logger *log.Logger, t *task.Task, o Outcome) Outcome {
	if t.IgnoresErrors() {
		o.Ignored = true
		logger.WithError(o.Err).Warn("task failed, errors ignored", "phase", o.Phase)
		return o
	}
	logger.WithError(o.Err).Error("task failed", "phase", o.Phase)
	return o
}

func (e *Executor) dispatch(ctx context.Context, t *task.Task, ec *envctx.Context, dir string) error {
	switch t.Kind() {
	case task.KindCommand:
		return e.runCommand(ctx, t, ec, dir)
	case task.KindScript:
		return e.runScript(ctx, t, ec, dir)
	case task.KindRunTask:
		return e.runTasks(ctx, t, ec)
	default:
		return nil
	}
}

func (e *Executor) runCommand(ctx context.Context, t *task.Task, ec *envctx.Context, dir string) error {
	args, err := e.expandArgs(t.Args, ec)
	if err != nil {
		return err
	}
	cmd := process.Command{
		Name:   ec.Expand(t.Command),
		Args:   args,
		Env:    ec.Environ(),
		Dir:    dir,
		Stdout: e.stdout(),
		Stderr: e.stderr(),
	}
	e.logger().Debug("executing command", "task", t.Name, "command", cmd.String())

	if err := process.Check(ctx, e.Runner, cmd); err != nil {
		if _, ok := err.(*process.ExitError); ok {
			return err
		}
		return errors.Wrap(errors.ErrCodeSpawnFailed, fmt.Sprintf("unable to start %s", cmd.Name), err)
	}
	return nil
}

func (e *Executor) expandArgs(args []string, ec *envctx.Context) ([]string, error) {
	if args == nil {
		return nil, nil
	}
	expanded := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == taskArgsPlaceholder {
			expanded = append(expanded, e.TaskArgs...)
			continue
		}
		expanded = append(expanded, ec.Expand(arg))
	}
	return functions.Expand(ec, expanded)
}

func (e *Executor) runScript(ctx context.Context, t *task.Task, ec *envctx.Context, dir string) error {
	lines, err := scriptengine.LoadLines(t.Script, dir)
	if err != nil {
		return err
	}
	return e.Scripts.Execute(ctx, scriptengine.Request{
		Task:       t.Name,
		Lines:      lines,
		Runner:     t.ScriptRunner,
		RunnerArgs: ec.ExpandAll(t.ScriptRunnerArgs),
		Extension:  t.ScriptExtension,
		Args:       e.TaskArgs,
		Env:        ec,
		Dir:        dir,
		Stdout:     e.stdout(),
		Stderr:     e.stderr(),
	})
}

func (e *Executor) runTasks(ctx context.Context, t *task.Task, ec *envctx.Context) error {
	rt := t.RunTask
	names := rt.Names
	if len(rt.Routes) > 0 {
		var err error
		names, err = e.route(ctx, rt.Routes, ec)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			e.logger().Debug("no run_task route matched", "task", t.Name)
			return nil
		}
	}
	if rt.Parallel {
		e.logger().Debug("running parallel run_task sequentially", "task", t.Name)
	}

	if !rt.Fork {
		return e.subFlow(ctx, names, ec)
	}

	err := e.fork(ctx, names, ec)
	if rt.CleanupTask != "" {
		if cleanupErr := e.fork(ctx, []string{rt.CleanupTask}, ec); err == nil {
			err = cleanupErr
		}
	}
	return err
}

func (e *Executor) route(ctx context.Context, routes []task.Route, ec *envctx.Context) ([]string, error) {
	for _, r := range routes {
		ok, err := e.conditions().Evaluate(ctx, r.Condition, r.ConditionScript, ec)
		if err != nil {
			return nil, err
		}
		if ok {
			return r.Names, nil
		}
	}
	return nil, nil
}

func (e *Executor) subFlow(ctx context.Context, names []string, ec *envctx.Context) error {
	if e.Planner == nil {
		return errors.New(errors.ErrCodeNestedFlow, "sub flows need a planner")
	}
	flow, err := e.Planner.Sub().PlanTasks(names)
	if err != nil {
		return err
	}
	_, err = e.Execute(ctx, flow, ec)
	return err
}

// fork runs names as a nested flow one recursion level down. The nested
// flow works on a copy of ec, so its env changes stay inside it.
func (e *Executor) fork(ctx context.Context, names []string, ec *envctx.Context) error {
	child := ec.Clone()
	depth := child.EnterNested()
	e.logger().Debug("running forked flow", "tasks", names, "depth", depth)

	if err := e.subFlow(ctx, names, child); err != nil {
		return errors.Wrap(errors.ErrCodeNestedFlow, fmt.Sprintf("forked flow %s failed", strings.Join(names, ", ")), err)
	}
	return nil
}

func (e *Executor) runMember(ctx context.Context, step plan.Step, ec *envctx.Context) Outcome {
	o := e.member(ctx, step, ec)
	if o.Status == StatusFailed && step.Task.IgnoresErrors() {
		o.Ignored = true
	}
	return o
}

func (e *Executor) member(ctx context.Context, step plan.Step, ec *envctx.Context) Outcome {
	if e.Nested == nil {
		return failed(PhaseExecution, errors.Newf(errors.ErrCodeNestedFlow, "no runner for workspace member %s", step.Member))
	}

	child := ec.Clone()
	child.EnterNested()
	dir := step.Member
	if !filepath.IsAbs(dir) && e.Dir != "" {
		dir = filepath.Join(e.Dir, dir)
	}

	e.logger().Info("running workspace member", "task", step.Name, "member", step.Member)
	err := e.Nested.RunNested(ctx, NestedRequest{Task: step.Name, Member: step.Member, Dir: dir, Env: child})
	if err != nil {
		return failed(PhaseExecution, errors.Wrap(errors.ErrCodeNestedFlow,
			fmt.Sprintf("workspace member %s failed", step.Member), err))
	}
	return success()
}

// RunTask runs name and its dependencies as a sub flow with ec. Scripts
// call back into the flow through it.
func (e *Executor) RunTask(ctx context.Context, name string, ec *envctx.Context) error {
	return e.subFlow(ctx, []string{name}, ec)
}

func (e *Executor) taskDir(t *task.Task, ec *envctx.Context) string {
	if t.Cwd == "" {
		return e.Dir
	}
	cwd := ec.Expand(t.Cwd)
	if filepath.IsAbs(cwd) || e.Dir == "" {
		return cwd
	}
	return filepath.Join(e.Dir, cwd)
}

func (e *Executor) conditions() *condition.Evaluator {
	if e.Conditions != nil {
		return e.Conditions
	}
	ev := &condition.Evaluator{Platform: task.CurrentPlatform(), Dir: e.Dir}
	if e.Scripts != nil {
		ev.Scripts = e.Scripts
	}
	return ev
}

func (e *Executor) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.DefaultLogger()
}

func (e *Executor) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Executor) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}

type activeTasksKey struct{}

// enterTask records name as running in the returned context. A task that is
// already running further up the chain fails instead of recursing.
func enterTask(ctx context.Context, name string) (context.Context, error) {
	chain, _ := ctx.Value(activeTasksKey{}).([]string)
	for i, running := range chain {
		if running == name {
			cycle := append(append([]string{}, chain[i:]...), name)
			return ctx, errors.NewTaskRecursionError(cycle)
		}
	}
	next := append(append(make([]string, 0, len(chain)+1), chain...), name)
	return context.WithValue(ctx, activeTasksKey{}, next), nil
}

func deprecationMessage(t *task.Task) string {
	if t.Deprecated != nil && t.Deprecated.Message != "" {
		return fmt.Sprintf("task %s is deprecated: %s", t.Name, t.Deprecated.Message)
	}
	return fmt.Sprintf("task %s is deprecated", t.Name)
}
