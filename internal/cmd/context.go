package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/runner"
	"github.com/felixgeelhaar/makeflow/internal/storage"
)

// CommandContext holds the parsed flags of one invocation along with the
// logger and store they configure.
type CommandContext struct {
	Makefile     string
	Profile      string
	Cwd          string
	Env          []string
	LogLevel     string
	Verbose      bool
	Quiet        bool
	NoColor      bool
	OutputFormat string

	AllowPrivate       bool
	SkipInitEnd        bool
	SkipTasks          string
	NoOnError          bool
	DisableUpdateCheck bool
	NoWorkspace        bool
	TimeSummary        bool
	Watch              bool
	PrintSteps         bool
	ListAllSteps       bool

	Store  *storage.Store
	Logger *log.Logger
}

// NewCommandContext reads the flags of cmd, opens the global store and sets
// up the process-wide logger. Flags a command does not define keep their
// zero value.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cc := &CommandContext{}
	flags := cmd.Flags()

	strs := map[string]*string{
		"makefile":      &cc.Makefile,
		"profile":       &cc.Profile,
		"cwd":           &cc.Cwd,
		"loglevel":      &cc.LogLevel,
		"output-format": &cc.OutputFormat,
		"skip-tasks":    &cc.SkipTasks,
	}
	for name, dst := range strs {
		if flags.Lookup(name) == nil {
			continue
		}
		v, err := flags.GetString(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	bools := map[string]*bool{
		"verbose":                   &cc.Verbose,
		"quiet":                     &cc.Quiet,
		"no-color":                  &cc.NoColor,
		"allow-private":             &cc.AllowPrivate,
		"skip-init-end-tasks":       &cc.SkipInitEnd,
		"no-on-error":               &cc.NoOnError,
		"disable-check-for-updates": &cc.DisableUpdateCheck,
		"no-workspace":              &cc.NoWorkspace,
		"time-summary":              &cc.TimeSummary,
		"watch":                     &cc.Watch,
		"print-steps":               &cc.PrintSteps,
		"list-all-steps":            &cc.ListAllSteps,
	}
	for name, dst := range bools {
		if flags.Lookup(name) == nil {
			continue
		}
		v, err := flags.GetBool(name)
		if err != nil {
			return nil, err
		}
		*dst = v
	}

	if flags.Lookup("env") != nil {
		env, err := flags.GetStringArray("env")
		if err != nil {
			return nil, err
		}
		cc.Env = env
	}

	store, err := storage.Default()
	if err == nil {
		cc.Store = store
	}

	var configured string
	if cc.Store != nil {
		if cfg, cfgErr := cc.Store.LoadConfig(); cfgErr == nil {
			configured = cfg.LogLevel
		}
	}
	cc.Logger = log.New(loggerConfig(cc.Level(configured), isatty.IsTerminal(os.Stderr.Fd())))
	log.SetDefaultLogger(cc.Logger)
	if err != nil {
		cc.Logger.WithError(err).Debug("global config and cache disabled")
	}
	return cc, nil
}

// Level resolves the log level: --loglevel wins over --verbose and --quiet,
// which win over the configured level.
func (cc *CommandContext) Level(configured string) log.Level {
	switch {
	case cc.LogLevel != "":
		return log.ParseLevel(cc.LogLevel)
	case cc.Verbose:
		return log.LevelDebug
	case cc.Quiet:
		return log.LevelError
	case configured != "":
		return log.ParseLevel(configured)
	default:
		return log.LevelInfo
	}
}

// Color reports whether output may use colors.
func (cc *CommandContext) Color() bool {
	if cc.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd())
}

// RunOptions converts the flags into runner options.
func (cc *CommandContext) RunOptions() runner.Options {
	return runner.Options{
		Makefile:           cc.Makefile,
		Cwd:                cc.Cwd,
		Profile:            cc.Profile,
		Env:                cc.Env,
		AllowPrivate:       cc.AllowPrivate,
		SkipInitEnd:        cc.SkipInitEnd,
		SkipTasks:          cc.SkipTasks,
		NoOnError:          cc.NoOnError,
		DisableUpdateCheck: cc.DisableUpdateCheck,
		NoWorkspace:        cc.NoWorkspace,
		TimeSummary:        cc.TimeSummary,
		Watch:              cc.Watch,
		PrintSteps:         cc.PrintSteps,
		ListAllSteps:       cc.ListAllSteps,
		OutputFormat:       cc.OutputFormat,
		Color:              cc.Color(),
	}
}

// loggerConfig logs text records to a terminal and JSON otherwise.
func loggerConfig(level log.Level, terminal bool) log.Config {
	if terminal {
		return log.TerminalConfig(level)
	}
	cfg := log.DefaultConfig()
	cfg.Level = level
	return cfg
}
