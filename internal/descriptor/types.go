// Package descriptor loads task descriptors: TOML or YAML files declaring
// config, env and tasks. Files can extend other files and are layered on
// top of a set of built-in core tasks.
package descriptor

import (
	"github.com/felixgeelhaar/makeflow/internal/installer"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// Descriptor is a loaded descriptor file, or several of them layered.
type Descriptor struct {
	Extend    task.StringList      `json:"extend,omitempty"`
	Config    Config               `json:"config"`
	Env       task.Env             `json:"env,omitempty"`
	Tasks     map[string]task.Task `json:"tasks,omitempty"`
	Workspace Workspace            `json:"workspace"`

	// Path is the file the descriptor was loaded from.
	Path string `json:"-"`
}

// Config is the [config] section.
type Config struct {
	SkipCoreTasks      *bool           `json:"skip_core_tasks,omitempty"`
	InitTask           string          `json:"init_task,omitempty"`
	EndTask            string          `json:"end_task,omitempty"`
	OnErrorTask        string          `json:"on_error_task,omitempty"`
	DefaultTaskName    string          `json:"default_task_name,omitempty"`
	AdditionalProfiles task.StringList `json:"additional_profiles,omitempty"`
	DefaultToWorkspace *bool           `json:"default_to_workspace,omitempty"`
	TimeSummary        *bool           `json:"time_summary,omitempty"`
	MinVersion         string          `json:"min_version,omitempty"`
	PackageManager     *Manager        `json:"package_manager,omitempty"`
	ToolchainManager   *Manager        `json:"toolchain_manager,omitempty"`
}

// Manager overrides the invocations of a package or toolchain manager.
type Manager struct {
	List    []string `json:"list,omitempty"`
	Install []string `json:"install,omitempty"`
	Add     []string `json:"add,omitempty"`
}

// Workspace is the [workspace] section.
type Workspace struct {
	Members []string `json:"members,omitempty"`
	Exclude []string `json:"exclude,omitempty"`
}

// Merge layers over on top of base: set config fields of over win, env
// sections merge by key and tasks present in both are merged field by
// field, honoring clear.
func Merge(base, over *Descriptor) *Descriptor {
	out := &Descriptor{
		Config:    mergeConfig(base.Config, over.Config),
		Env:       base.Env.Merge(over.Env),
		Tasks:     make(map[string]task.Task, len(base.Tasks)+len(over.Tasks)),
		Workspace: base.Workspace,
		Path:      over.Path,
	}
	if out.Path == "" {
		out.Path = base.Path
	}
	if len(over.Workspace.Members) > 0 {
		out.Workspace.Members = over.Workspace.Members
	}
	if len(over.Workspace.Exclude) > 0 {
		out.Workspace.Exclude = over.Workspace.Exclude
	}

	for name, t := range base.Tasks {
		out.Tasks[name] = t
	}
	for name, t := range over.Tasks {
		if prev, ok := out.Tasks[name]; ok {
			t = task.Merge(prev, t)
		}
		t.Name = name
		out.Tasks[name] = t
	}
	return out
}

func mergeConfig(base, over Config) Config {
	out := base
	if over.SkipCoreTasks != nil {
		out.SkipCoreTasks = over.SkipCoreTasks
	}
	if over.InitTask != "" {
		out.InitTask = over.InitTask
	}
	if over.EndTask != "" {
		out.EndTask = over.EndTask
	}
	if over.OnErrorTask != "" {
		out.OnErrorTask = over.OnErrorTask
	}
	if over.DefaultTaskName != "" {
		out.DefaultTaskName = over.DefaultTaskName
	}
	if len(over.AdditionalProfiles) > 0 {
		out.AdditionalProfiles = over.AdditionalProfiles
	}
	if over.DefaultToWorkspace != nil {
		out.DefaultToWorkspace = over.DefaultToWorkspace
	}
	if over.TimeSummary != nil {
		out.TimeSummary = over.TimeSummary
	}
	if over.MinVersion != "" {
		out.MinVersion = over.MinVersion
	}
	if over.PackageManager != nil {
		out.PackageManager = over.PackageManager
	}
	if over.ToolchainManager != nil {
		out.ToolchainManager = over.ToolchainManager
	}
	return out
}

// InitTaskName returns the configured init task name.
func (c Config) InitTaskName() string {
	if c.InitTask != "" {
		return c.InitTask
	}
	return "init"
}

// EndTaskName returns the configured end task name.
func (c Config) EndTaskName() string {
	if c.EndTask != "" {
		return c.EndTask
	}
	return "end"
}

// DefaultTask returns the task run when none is requested.
func (c Config) DefaultTask() string {
	if c.DefaultTaskName != "" {
		return c.DefaultTaskName
	}
	return "default"
}

// InstallerConfig applies the manager overrides to the default installer
// invocations.
func (c Config) InstallerConfig() installer.Config {
	cfg := installer.DefaultConfig()
	if m := c.PackageManager; m != nil {
		if len(m.List) > 0 {
			cfg.PackageList = m.List
		}
		if len(m.Install) > 0 {
			cfg.PackageInstall = m.Install
		}
	}
	if m := c.ToolchainManager; m != nil {
		if len(m.List) > 0 {
			cfg.ComponentList = m.List
		}
		if len(m.Add) > 0 {
			cfg.ComponentAdd = m.Add
		}
	}
	return cfg
}

// Normalizer returns a normalizer over the descriptor's tasks.
func (d *Descriptor) Normalizer(p task.Platform) *task.Normalizer {
	return task.NewNormalizer(d.Tasks, p)
}
