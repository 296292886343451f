// Package runner drives one invocation: it loads the descriptor, builds the
// environment, plans the requested task and executes the flow.
package runner

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/makeflow/internal/descriptor"
	"github.com/felixgeelhaar/makeflow/internal/detect"
	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/exec"
	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/plan"
	"github.com/felixgeelhaar/makeflow/internal/process"
	"github.com/felixgeelhaar/makeflow/internal/scriptengine"
	"github.com/felixgeelhaar/makeflow/internal/storage"
	"github.com/felixgeelhaar/makeflow/internal/task"
	"github.com/felixgeelhaar/makeflow/internal/ux"
	"github.com/felixgeelhaar/makeflow/internal/version"
)

// Workspace member filters, ";" separated globs.
const (
	SkipMembersKey    = "MAKEFLOW_WORKSPACE_SKIP_MEMBERS"
	IncludeMembersKey = "MAKEFLOW_WORKSPACE_INCLUDE_MEMBERS"
)

// Options are the per-invocation settings, usually taken from the command line.
type Options struct {
	Makefile string
	Cwd      string
	Profile  string
	// Env holds KEY=VALUE overrides.
	Env      []string
	Task     string
	TaskArgs []string

	AllowPrivate       bool
	SkipInitEnd        bool
	SkipTasks          string
	NoOnError          bool
	DisableUpdateCheck bool
	NoWorkspace        bool
	TimeSummary        bool
	Watch              bool

	PrintSteps   bool
	ListAllSteps bool
	OutputFormat string
	Color        bool
}

// Runner runs invocations. The zero value is not usable; call New.
type Runner struct {
	Process process.Runner
	// Store holds the global config and cache; nil disables both.
	Store  *storage.Store
	Latest version.LatestFunc
	// Nested runs workspace members; nil re-executes the current binary.
	Nested exec.NestedRunner
	// Environ is the process environment the Context starts from.
	Environ func() []string
	// Probe publishes CI and git state into the env; nil skips probing.
	Probe *detect.Prober
	Now   func() time.Time

	Logger   *log.Logger
	Stdout   io.Writer
	Stderr   io.Writer
	Debounce time.Duration
}

// New creates a runner spawning real processes.
func New(store *storage.Store) *Runner {
	return &Runner{
		Process:  process.OSRunner{},
		Store:    store,
		Latest:   version.GoListLatest,
		Environ:  os.Environ,
		Probe:    detect.New(process.OSRunner{}),
		Now:      time.Now,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Debounce: 500 * time.Millisecond,
	}
}

// session is the state of one invocation shared by its reruns.
type session struct {
	opts       Options
	dir        string
	descriptor *descriptor.Descriptor
	executor   *exec.Executor
	flow       *plan.Flow
	env        *envctx.Context
	styles     *ux.Styles
}

// Run executes the invocation described by opts.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	dir, err := workDir(opts.Cwd)
	if err != nil {
		return err
	}
	ec, err := r.context(opts)
	if err != nil {
		return err
	}
	if r.Probe != nil {
		r.Probe.Apply(ctx, dir, ec)
	}

	d, err := descriptor.Load(descriptor.Options{Path: opts.Makefile, Dir: dir, Version: version.Version})
	if err != nil {
		return err
	}
	if opts.ListAllSteps {
		return r.print(opts, ux.NewTaskList(d.Tasks))
	}

	ec.SetAdditionalProfiles(append(ec.AdditionalProfiles(), d.Config.AdditionalProfiles...))
	normalizer := d.Normalizer(task.CurrentPlatform())
	if err := plan.ValidateGraph(normalizer); err != nil {
		return err
	}

	planOpts, err := r.planOptions(d, dir, opts, ec)
	if err != nil {
		return err
	}
	planner := plan.NewPlanner(normalizer, planOpts)
	executor := r.executor(planner, d, dir, opts)

	if err := executor.Env.Apply(ctx, d.Env, ec); err != nil {
		return err
	}

	name := r.taskName(opts, d)
	flow, err := planner.Plan(name)
	if err != nil {
		return err
	}
	if err := flow.Validate(); err != nil {
		return err
	}
	if opts.PrintSteps {
		return r.print(opts, ux.NewPlanView(flow))
	}

	if ec.IsTop() {
		if !opts.DisableUpdateCheck {
			r.checkForUpdates(ctx)
		}
		r.pruneGoCache(executor.Scripts.GoCache)
	}

	s := &session{
		opts:       opts,
		dir:        dir,
		descriptor: d,
		executor:   executor,
		flow:       flow,
		env:        ec,
		styles:     ux.NewStyles(opts.Color),
	}

	root, err := normalizer.Normalize(name)
	if err != nil {
		return err
	}
	if opts.Watch || root.Watches() {
		if err := r.runFlow(ctx, s); err != nil && ctx.Err() == nil {
			r.logger().WithError(err).Error("flow failed, waiting for changes")
		}
		return Watch(ctx, dir, r.Debounce, r.logger(), func(ctx context.Context) error {
			return r.runFlow(ctx, s)
		})
	}
	return r.runFlow(ctx, s)
}

// runFlow executes the planned flow once on a copy of the invocation env.
func (r *Runner) runFlow(ctx context.Context, s *session) error {
	ec := s.env.Clone()
	logger := r.logger().With("run_id", s.executor.RunID, "task", s.flow.Root, "profile", ec.Profile())
	logger.Info("running flow", "steps", s.flow.Len())

	result, err := s.executor.Execute(ctx, s.flow, ec)
	if err != nil && ctx.Err() == nil {
		r.runOnError(ctx, s, ec)
	}

	if s.opts.TimeSummary || isSet(s.descriptor.Config.TimeSummary) || ((ec.IsTrue("CI") || ec.IsTrue(detect.EnvCI)) && ec.IsTop()) {
		result.PrintTimeSummary(r.stderr())
	}
	if logger.Enabled(ctx, log.LevelDebug) {
		result.PrintSummary(r.stderr())
	}
	r.saveManifest(logger, s, result, ec)

	if err != nil {
		if result.FailedTask != "" {
			fmt.Fprintln(r.stderr(), s.styles.BuildFailed(result.FailedTask))
		}
		return err
	}
	fmt.Fprintln(r.stderr(), s.styles.BuildDone(result.Duration()))
	return nil
}

// saveManifest records the run under the cache dir. Failures are logged and
// never fail the invocation.
func (r *Runner) saveManifest(logger *log.Logger, s *session, result *exec.ExecutionResult, ec *envctx.Context) {
	if r.Store == nil {
		return
	}
	m := result.Manifest(ec.Profile())
	if s.descriptor.Path != "" {
		if err := m.AddInputHash("descriptor", s.descriptor.Path); err != nil {
			logger.WithError(err).Debug("failed to hash descriptor")
		}
	}
	path, err := exec.SaveManifest(m, filepath.Join(r.Store.CacheDir(), "runs"))
	if err != nil {
		logger.WithError(err).Warn("failed to save run manifest")
		return
	}
	logger.Debug("saved run manifest", "path", path)
}

func (r *Runner) runOnError(ctx context.Context, s *session, ec *envctx.Context) {
	name := s.descriptor.Config.OnErrorTask
	if name == "" || s.opts.NoOnError {
		return
	}
	r.logger().Info("running on error task", "task", name)
	if err := s.executor.RunTask(ctx, name, ec); err != nil {
		r.logger().WithError(err).Error("on error task failed", "task", name)
	}
}

// context builds the invocation Context from the process environment, the
// --env overrides and the requested profile.
func (r *Runner) context(opts Options) (*envctx.Context, error) {
	environ := os.Environ
	if r.Environ != nil {
		environ = r.Environ
	}
	ec := envctx.FromEnviron(environ())

	for _, kv := range opts.Env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid flag value for --env: %q (expected KEY=VALUE)", kv)
		}
		ec.Set(key, value)
	}

	if opts.Profile != "" {
		ec.SetProfile(opts.Profile)
	} else {
		ec.SetProfile(ec.Profile())
	}
	return ec, nil
}

func (r *Runner) planOptions(d *descriptor.Descriptor, dir string, opts Options, ec *envctx.Context) (plan.Options, error) {
	po := plan.Options{
		InitTask:           d.Config.InitTaskName(),
		EndTask:            d.Config.EndTaskName(),
		SkipInitEnd:        opts.SkipInitEnd,
		Top:                ec.IsTop(),
		AllowPrivate:       opts.AllowPrivate,
		NoWorkspace:        opts.NoWorkspace,
		DefaultToWorkspace: isSet(d.Config.DefaultToWorkspace),
	}

	if opts.SkipTasks != "" {
		re, err := regexp.Compile(opts.SkipTasks)
		if err != nil {
			return po, errors.Wrap(errors.ErrCodePlanSkipPattern, fmt.Sprintf("invalid skip pattern %q", opts.SkipTasks), err)
		}
		po.SkipTasks = re
	}

	if !opts.NoWorkspace && len(d.Workspace.Members) > 0 {
		skip := append(plan.SplitFilter(ec.GetOr(SkipMembersKey, "")), d.Workspace.Exclude...)
		include := plan.SplitFilter(ec.GetOr(IncludeMembersKey, ""))
		members, err := plan.ResolveMembers(dir, d.Workspace.Members, skip, include)
		if err != nil {
			return po, errors.Wrap(errors.ErrCodePlanNoMembers, "resolve workspace members", err)
		}
		po.Members = members
	}
	return po, nil
}

func (r *Runner) executor(planner *plan.Planner, d *descriptor.Descriptor, dir string, opts Options) *exec.Executor {
	e := exec.NewExecutor(planner, r.Process, dir)
	e.SetLogger(r.logger())
	e.SetOutput(r.stdout(), r.stderr())
	e.TaskArgs = opts.TaskArgs
	e.Installer.Config = d.Config.InstallerConfig()
	if r.Store != nil {
		maxAge, err := r.globalConfig().GoCacheAge()
		if err != nil {
			r.logger().WithError(err).Warn("ignoring invalid go_cache_max_age")
		}
		e.Scripts.GoCache = scriptengine.NewGoCache(filepath.Join(r.Store.CacheDir(), "go"), maxAge)
		e.Scripts.GoCache.Logger = r.logger()
	}

	e.Nested = r.Nested
	if e.Nested == nil {
		e.Nested = r.selfNested(opts)
	}
	return e
}

func (r *Runner) selfNested(opts Options) exec.NestedRunner {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	var args []string
	if lvl := r.logger().Config().Level; lvl != log.LevelInfo {
		args = append(args, "--loglevel", lvl.Flag())
	}
	if opts.SkipTasks != "" {
		args = append(args, "--skip-tasks", opts.SkipTasks)
	}
	return &ProcessNested{
		Executable: exe,
		Runner:     r.Process,
		Flags:      args,
		TaskArgs:   opts.TaskArgs,
		Stdout:     r.stdout(),
		Stderr:     r.stderr(),
	}
}

// taskName picks the task to run: the requested one, then the global
// default, then the descriptor default.
func (r *Runner) taskName(opts Options, d *descriptor.Descriptor) string {
	if opts.Task != "" {
		return opts.Task
	}
	if cfg := r.globalConfig(); cfg.DefaultTaskName != "" {
		return cfg.DefaultTaskName
	}
	return d.Config.DefaultTask()
}

func (r *Runner) globalConfig() *storage.GlobalConfig {
	if r.Store == nil {
		return &storage.GlobalConfig{}
	}
	cfg, err := r.Store.LoadConfig()
	if err != nil {
		r.logger().WithError(err).Warn("ignoring unreadable global config")
		return &storage.GlobalConfig{}
	}
	return cfg
}

// pruneGoCache drops compiled Go scripts unused for longer than the cache
// max age.
func (r *Runner) pruneGoCache(cache *scriptengine.GoCache) {
	if cache == nil || cache.MaxAge <= 0 {
		return
	}
	pruned, err := cache.Prune(cache.MaxAge)
	if err != nil {
		r.logger().WithError(err).Warn("failed to prune go script cache")
		return
	}
	if pruned > 0 {
		r.logger().Debug("pruned go script cache", "removed", pruned)
	}
}

// checkForUpdates queries the latest release when the configured interval
// has elapsed. Failures are logged and never fail the invocation.
func (r *Runner) checkForUpdates(ctx context.Context) {
	if r.Store == nil || r.Latest == nil {
		return
	}
	now := r.now()
	cache := r.Store.LoadCache()
	if !version.CheckDue(r.globalConfig().UpdateInterval(), cache.LastUpdateCheck, now) {
		return
	}

	latest, err := r.Latest(ctx)
	cache.LastUpdateCheck = now.Unix()
	if saveErr := r.Store.SaveCache(cache); saveErr != nil {
		r.logger().WithError(saveErr).Debug("failed to persist update check time")
	}
	if err != nil {
		r.logger().WithError(err).Debug("update check failed")
		return
	}
	if version.IsNewer(version.Version, latest) {
		r.logger().Info("a newer makeflow version is available", "current", version.Version, "latest", latest)
	}
}

func (r *Runner) print(opts Options, data any) error {
	f, err := ux.NewFormatter(opts.OutputFormat, &ux.FormatterOptions{
		Writer: r.stdout(),
		Styles: ux.NewStyles(opts.Color),
	})
	if err != nil {
		return err
	}
	return f.Format(data)
}

func workDir(cwd string) (string, error) {
	if cwd == "" {
		return os.Getwd()
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeDirectoryFailed, fmt.Sprintf("working directory %s", cwd), err)
	}
	if !info.IsDir() {
		return "", errors.Newf(errors.ErrCodeDirectoryFailed, "working directory %s is not a directory", cwd)
	}
	return abs, nil
}

// IsInterrupted reports whether err stems from a cancelled run.
func IsInterrupted(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *Runner) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.DefaultLogger()
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

func isSet(b *bool) bool { return b != nil && *b }
