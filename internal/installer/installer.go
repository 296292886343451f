// Package installer makes sure the tools a task requires are present before
// the task runs.
package installer

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/mod/semver"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/log"
	"github.com/felixgeelhaar/makeflow/internal/process"
	"github.com/felixgeelhaar/makeflow/internal/scriptengine"
	"github.com/felixgeelhaar/makeflow/internal/task"
	"github.com/felixgeelhaar/makeflow/internal/version"
)

// Kind distinguishes the ways a requirement is checked and installed.
type Kind string

const (
	// KindPackage is a package installed through the package manager.
	KindPackage Kind = "package"
	// KindComponent is a toolchain component.
	KindComponent Kind = "component"
	// KindScript has no presence check; its install script is the requirement.
	KindScript Kind = "script"
)

// Requirement is a capability a task needs.
type Requirement struct {
	Task       string
	Kind       Kind
	Name       string
	Binary     string
	TestArg    []string
	MinVersion string
	Toolchain  string
	// Args replace the package name in the install invocation.
	Args []string
	// Script overrides the package manager invocation.
	Script *task.Script
	Dir    string
}

// String renders the requirement for messages.
func (r Requirement) String() string {
	if r.Name == "" {
		if r.Binary != "" {
			return r.Binary
		}
		return "install script"
	}
	if r.Toolchain != "" {
		return r.Name + " (" + r.Toolchain + ")"
	}
	return r.Name
}

func (r Requirement) key() string {
	return string(r.Kind) + "|" + r.Name + "|" + r.Binary + "|" + r.Toolchain + "|" + r.MinVersion + "|" + r.Task
}

// FromTask extracts the install requirement of t, if it has one.
func FromTask(t *task.Task, dir string) (Requirement, bool) {
	pkg := t.InstallPackage
	if pkg == nil && t.InstallScript.IsEmpty() {
		return Requirement{}, false
	}

	req := Requirement{
		Task:      t.Name,
		Kind:      KindScript,
		Toolchain: t.Toolchain,
		Args:      t.InstallPackageArgs,
		Dir:       dir,
	}
	if !t.InstallScript.IsEmpty() {
		req.Script = t.InstallScript
	}
	if pkg != nil {
		req.Binary = pkg.Binary
		req.TestArg = pkg.TestArg
		req.MinVersion = pkg.MinVersion
		switch {
		case pkg.Component != "":
			req.Kind = KindComponent
			req.Name = pkg.Component
		case pkg.Package != "":
			req.Kind = KindPackage
			req.Name = pkg.Package
		}
	}
	return req, true
}

// Config holds the package and component manager invocations.
type Config struct {
	PackageList    []string
	PackageInstall []string
	ComponentList  []string
	ComponentAdd   []string
}

// DefaultConfig returns the cargo and rustup invocations.
func DefaultConfig() Config {
	return Config{
		PackageList:    []string{"cargo", "install", "--list"},
		PackageInstall: []string{"cargo", "install"},
		ComponentList:  []string{"rustup", "component", "list", "--installed"},
		ComponentAdd:   []string{"rustup", "component", "add"},
	}
}

// ScriptExecutor runs install scripts.
type ScriptExecutor interface {
	Execute(ctx context.Context, req scriptengine.Request) error
}

// Installer checks and installs requirements. Requirements found present
// are remembered for the lifetime of the Installer.
type Installer struct {
	Runner  process.Runner
	Scripts ScriptExecutor
	Config  Config
	Logger  *log.Logger
	Stdout  io.Writer
	Stderr  io.Writer

	mu      sync.Mutex
	present map[string]bool
}

// New creates an Installer.
func New(runner process.Runner, scripts ScriptExecutor, cfg Config) *Installer {
	return &Installer{
		Runner:  runner,
		Scripts: scripts,
		Config:  cfg,
		present: make(map[string]bool),
	}
}

// EnsureInstalled reports whether req is present after checking it and, if
// needed, installing it.
func (i *Installer) EnsureInstalled(ctx context.Context, req Requirement, ec *envctx.Context) bool {
	if ec == nil {
		ec = envctx.New(nil)
	}
	key := req.key()
	if i.isPresent(key) {
		return true
	}

	// check and install run unlocked: an install script may run tasks that
	// need this Installer again.
	logger := i.logger().With("task", req.Task, "requirement", req.String())
	if (req.Kind != KindScript || req.Binary != "") && i.check(ctx, req, ec) {
		logger.Debug("requirement already installed")
		i.markPresent(key)
		return true
	}

	logger.Info("installing requirement")
	if err := i.install(ctx, req, ec); err != nil {
		logger.WithError(err).Warn("install failed")
		return false
	}
	i.markPresent(key)
	return true
}

func (i *Installer) isPresent(key string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.present[key]
}

func (i *Installer) markPresent(key string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.present == nil {
		i.present = make(map[string]bool)
	}
	i.present[key] = true
}

func (i *Installer) check(ctx context.Context, req Requirement, ec *envctx.Context) bool {
	if req.Binary != "" {
		return i.run(ctx, ec, req.Dir, io.Discard, append([]string{req.Binary}, req.TestArg...)) == nil
	}

	switch req.Kind {
	case KindPackage:
		out, ok := i.output(ctx, ec, req.Dir, i.Config.PackageList)
		if !ok {
			return false
		}
		installed, found := ListedPackages(out)[req.Name]
		return found && MeetsMinimum(installed, req.MinVersion)
	case KindComponent:
		argv := i.Config.ComponentList
		if req.Toolchain != "" {
			argv = append(append([]string{}, argv...), "--toolchain", req.Toolchain)
		}
		out, ok := i.output(ctx, ec, req.Dir, argv)
		if !ok {
			return false
		}
		return HasComponent(out, req.Name)
	}
	return false
}

func (i *Installer) install(ctx context.Context, req Requirement, ec *envctx.Context) error {
	if req.Script != nil {
		lines, err := scriptengine.LoadLines(req.Script, req.Dir)
		if err != nil {
			return err
		}
		return i.Scripts.Execute(ctx, scriptengine.Request{
			Task:   req.Task,
			Lines:  lines,
			Env:    ec,
			Dir:    req.Dir,
			Stdout: i.stdout(),
			Stderr: i.stderr(),
		})
	}

	var argv []string
	switch req.Kind {
	case KindPackage:
		argv = append([]string{}, i.Config.PackageInstall...)
		if len(req.Args) > 0 {
			argv = append(argv, ec.ExpandAll(req.Args)...)
		} else {
			argv = append(argv, req.Name)
		}
	case KindComponent:
		argv = append([]string{}, i.Config.ComponentAdd...)
		if req.Toolchain != "" {
			argv = append(argv, "--toolchain", req.Toolchain)
		}
		argv = append(argv, req.Name)
	}
	if len(argv) == 0 {
		return fmt.Errorf("no way to install %s", req.String())
	}
	return i.run(ctx, ec, req.Dir, i.stdout(), argv)
}

func (i *Installer) run(ctx context.Context, ec *envctx.Context, dir string, stdout io.Writer, argv []string) error {
	return process.Check(ctx, i.Runner, process.Command{
		Name:   argv[0],
		Args:   argv[1:],
		Env:    ec.Environ(),
		Dir:    dir,
		Stdout: stdout,
		Stderr: io.Discard,
	})
}

func (i *Installer) output(ctx context.Context, ec *envctx.Context, dir string, argv []string) (string, bool) {
	out, res, err := process.Output(ctx, i.Runner, process.Command{
		Name:   argv[0],
		Args:   argv[1:],
		Env:    ec.Environ(),
		Dir:    dir,
		Stderr: io.Discard,
	})
	if err != nil || !res.Success() {
		return "", false
	}
	return out, true
}

func (i *Installer) logger() *log.Logger {
	if i.Logger != nil {
		return i.Logger
	}
	return log.DefaultLogger()
}

func (i *Installer) stdout() io.Writer {
	if i.Stdout != nil {
		return i.Stdout
	}
	return os.Stdout
}

func (i *Installer) stderr() io.Writer {
	if i.Stderr != nil {
		return i.Stderr
	}
	return os.Stderr
}

// ListedPackages parses a package listing such as the output of
// cargo install --list into package name and version. Indented lines list
// the binaries of the package above them and are ignored.
func ListedPackages(listing string) map[string]string {
	packages := make(map[string]string)
	scanner := bufio.NewScanner(strings.NewReader(listing))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}
		fields := strings.Fields(strings.TrimSuffix(strings.TrimSpace(line), ":"))
		if len(fields) == 0 {
			continue
		}
		installed := ""
		if len(fields) > 1 {
			installed = strings.TrimPrefix(strings.TrimSuffix(fields[1], ":"), "v")
		}
		packages[fields[0]] = installed
	}
	return packages
}

// HasComponent reports whether a component listing names component. Listed
// components may carry a target triple suffix.
func HasComponent(listing, component string) bool {
	for _, line := range strings.Split(listing, "\n") {
		name := strings.Fields(strings.TrimSpace(line))
		if len(name) == 0 {
			continue
		}
		if name[0] == component || strings.HasPrefix(name[0], component+"-") {
			return true
		}
	}
	return false
}

// MeetsMinimum reports whether the installed version satisfies minimum. An
// empty minimum always holds; an unparsable installed version does not.
func MeetsMinimum(installed, minimum string) bool {
	if minimum == "" {
		return true
	}
	v, m := version.Canonical(installed), version.Canonical(minimum)
	if v == "" || m == "" {
		return false
	}
	return semver.Compare(v, m) >= 0
}
