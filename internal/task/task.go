// Package task defines the task model and the normalizer that turns raw
// descriptor tasks into concrete, executable tasks.
package task

// Kind identifies the execution directive of a task.
type Kind string

const (
	KindCommand Kind = "command"
	KindScript  Kind = "script"
	KindRunTask Kind = "run_task"
	KindNoop    Kind = "noop"
)

// Task is a named unit of work as declared in a descriptor.
//
// Optional booleans are pointers so that a merge can tell "unset" from
// "false". A normalized task carries no alias, extend or platform blocks.
type Task struct {
	Name string `json:"-"`

	Description string       `json:"description,omitempty"`
	Category    string       `json:"category,omitempty"`
	Disabled    *bool        `json:"disabled,omitempty"`
	Private     *bool        `json:"private,omitempty"`
	Deprecated  *Deprecation `json:"deprecated,omitempty"`

	Extend       string `json:"extend,omitempty"`
	Clear        *bool  `json:"clear,omitempty"`
	Alias        string `json:"alias,omitempty"`
	LinuxAlias   string `json:"linux_alias,omitempty"`
	WindowsAlias string `json:"windows_alias,omitempty"`
	MacAlias     string `json:"mac_alias,omitempty"`

	Workspace *bool `json:"workspace,omitempty"`

	Command          string   `json:"command,omitempty"`
	Args             []string `json:"args,omitempty"`
	Script           *Script  `json:"script,omitempty"`
	ScriptRunner     string   `json:"script_runner,omitempty"`
	ScriptRunnerArgs []string `json:"script_runner_args,omitempty"`
	ScriptExtension  string   `json:"script_extension,omitempty"`
	RunTask          *RunTask `json:"run_task,omitempty"`

	InstallPackage     *InstallPackage `json:"install_package,omitempty"`
	InstallPackageArgs []string        `json:"install_package_args,omitempty"`
	InstallScript      *Script         `json:"install_script,omitempty"`
	Toolchain          string          `json:"toolchain,omitempty"`

	Dependencies    []string   `json:"dependencies,omitempty"`
	Condition       *Condition `json:"condition,omitempty"`
	ConditionScript *Script    `json:"condition_script,omitempty"`
	IgnoreErrors    *bool      `json:"ignore_errors,omitempty"`
	Force           *bool      `json:"force,omitempty"`
	Env             Env        `json:"env,omitempty"`
	Cwd             string     `json:"cwd,omitempty"`
	Watch           *bool      `json:"watch,omitempty"`

	Linux   *Task `json:"linux,omitempty"`
	Windows *Task `json:"windows,omitempty"`
	Mac     *Task `json:"mac,omitempty"`
}

// Script is an inline script body or a reference to a script file.
type Script struct {
	Lines []string `json:"lines,omitempty"`
	File  string   `json:"file,omitempty"`
}

// IsEmpty reports whether the script has neither lines nor a file.
func (s *Script) IsEmpty() bool {
	return s == nil || (len(s.Lines) == 0 && s.File == "")
}

// RunTask is the run_task directive: an ordered chain of tasks or a set of
// conditional routes.
type RunTask struct {
	Names       []string `json:"names,omitempty"`
	Fork        bool     `json:"fork,omitempty"`
	Parallel    bool     `json:"parallel,omitempty"`
	CleanupTask string   `json:"cleanup_task,omitempty"`
	Routes      []Route  `json:"routes,omitempty"`
}

// Route is one conditional branch of a routing run_task. The first route
// whose condition holds is taken.
type Route struct {
	Names           []string   `json:"names"`
	Condition       *Condition `json:"condition,omitempty"`
	ConditionScript *Script    `json:"condition_script,omitempty"`
}

// InstallPackage describes a capability the task needs before it runs.
type InstallPackage struct {
	Package    string   `json:"package,omitempty"`
	Binary     string   `json:"binary,omitempty"`
	TestArg    []string `json:"test_arg,omitempty"`
	Component  string   `json:"component,omitempty"`
	MinVersion string   `json:"min_version,omitempty"`
}

// Condition is the set of criteria that must all hold for a task to run.
type Condition struct {
	FailMessage   string            `json:"fail_message,omitempty"`
	Platforms     []string          `json:"platforms,omitempty"`
	Profiles      []string          `json:"profiles,omitempty"`
	EnvSet        []string          `json:"env_set,omitempty"`
	EnvNotSet     []string          `json:"env_not_set,omitempty"`
	Env           map[string]string `json:"env,omitempty"`
	EnvContains   map[string]string `json:"env_contains,omitempty"`
	EnvTrue       []string          `json:"env_true,omitempty"`
	EnvFalse      []string          `json:"env_false,omitempty"`
	FilesExist    []string          `json:"files_exist,omitempty"`
	FilesNotExist []string          `json:"files_not_exist,omitempty"`
	Expression    string            `json:"expression,omitempty"`
}

// Deprecation marks a task as deprecated, optionally with a message.
type Deprecation struct {
	Deprecated bool
	Message    string
}

// Kind returns the directive kind of the task.
func (t *Task) Kind() Kind {
	switch {
	case t.Command != "":
		return KindCommand
	case !t.Script.IsEmpty():
		return KindScript
	case t.RunTask != nil:
		return KindRunTask
	default:
		return KindNoop
	}
}

func (t *Task) directives() int {
	n := 0
	if t.Command != "" {
		n++
	}
	if !t.Script.IsEmpty() {
		n++
	}
	if t.RunTask != nil {
		n++
	}
	return n
}

// IsDisabled reports whether the task is disabled.
func (t *Task) IsDisabled() bool { return isSet(t.Disabled) }

// IsPrivate reports whether the task is private.
func (t *Task) IsPrivate() bool { return isSet(t.Private) }

// IgnoresErrors reports whether a failure of the task lets the flow continue.
func (t *Task) IgnoresErrors() bool { return isSet(t.IgnoreErrors) }

// IsForced reports whether install and condition errors are non-fatal.
func (t *Task) IsForced() bool { return isSet(t.Force) }

// Watches reports whether the task should be re-run on file changes.
func (t *Task) Watches() bool { return isSet(t.Watch) }

// IsDeprecated reports whether the task is deprecated.
func (t *Task) IsDeprecated() bool {
	return t.Deprecated != nil && (t.Deprecated.Deprecated || t.Deprecated.Message != "")
}

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

func isSet(b *bool) bool { return b != nil && *b }
