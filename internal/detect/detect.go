// Package detect probes the CI and git state of the invocation and exposes it
// to tasks as environment variables.
package detect

import (
	"context"
	"strconv"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/envctx"
	"github.com/felixgeelhaar/makeflow/internal/process"
)

// Variables set by Apply.
const (
	EnvCI         = "MAKEFLOW_CI"
	EnvCIVendor   = "MAKEFLOW_CI_VENDOR"
	EnvGitBranch  = "MAKEFLOW_GIT_BRANCH"
	EnvGitRoot    = "MAKEFLOW_GIT_ROOT"
	EnvGitDirty   = "MAKEFLOW_GIT_DIRTY"
	EnvGitChanges = "MAKEFLOW_GIT_UNCOMMITTED"
)

// GitContext holds git repository information
type GitContext struct {
	Initialized bool
	Root        string
	Branch      string
	Dirty       bool
	Uncommitted int
}

// CIInfo holds CI environment information
type CIInfo struct {
	Detected bool
	Vendor   string
}

// ciVendors maps a marker variable to its CI vendor, checked in order.
var ciVendors = []struct{ env, vendor string }{
	{"GITHUB_ACTIONS", "github"},
	{"GITLAB_CI", "gitlab"},
	{"JENKINS_HOME", "jenkins"},
	{"CIRCLECI", "circleci"},
	{"TRAVIS", "travis"},
	{"BUILDKITE", "buildkite"},
	{"TF_BUILD", "azure"},
}

// DetectCI inspects ec for the variables CI systems export.
func DetectCI(ec *envctx.Context) CIInfo {
	for _, c := range ciVendors {
		if ec.Has(c.env) {
			return CIInfo{Detected: true, Vendor: c.vendor}
		}
	}
	if ec.IsTrue("CI") {
		return CIInfo{Detected: true}
	}
	return CIInfo{}
}

// Prober runs git through a process.Runner.
type Prober struct {
	Runner process.Runner
}

// New creates a Prober.
func New(r process.Runner) *Prober {
	return &Prober{Runner: r}
}

// Git inspects the repository containing dir. A directory outside any
// repository yields the zero GitContext.
func (p *Prober) Git(ctx context.Context, dir string) GitContext {
	git := GitContext{}

	root, ok := p.git(ctx, dir, "rev-parse", "--show-toplevel")
	if !ok {
		return git
	}
	git.Initialized = true
	git.Root = root

	if branch, ok := p.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD"); ok {
		git.Branch = branch
	}
	if status, ok := p.git(ctx, dir, "status", "--porcelain"); ok && status != "" {
		git.Uncommitted = len(strings.Split(status, "\n"))
		git.Dirty = true
	}
	return git
}

func (p *Prober) git(ctx context.Context, dir string, args ...string) (string, bool) {
	out, res, err := process.Output(ctx, p.Runner, process.Command{Name: "git", Args: args, Dir: dir})
	if err != nil || !res.Success() {
		return "", false
	}
	return strings.TrimSpace(out), true
}

// Apply probes dir and publishes the findings into ec. Variables that are
// already present are kept, so nested invocations inherit the parent's view.
func (p *Prober) Apply(ctx context.Context, dir string, ec *envctx.Context) {
	if !ec.Has(EnvCI) {
		ci := DetectCI(ec)
		ec.SetBool(EnvCI, ci.Detected)
		if ci.Vendor != "" {
			ec.Set(EnvCIVendor, ci.Vendor)
		}
	}

	if ec.Has(EnvGitRoot) {
		return
	}
	git := p.Git(ctx, dir)
	if !git.Initialized {
		return
	}
	ec.Set(EnvGitRoot, git.Root)
	ec.Set(EnvGitBranch, git.Branch)
	ec.SetBool(EnvGitDirty, git.Dirty)
	ec.Set(EnvGitChanges, strconv.Itoa(git.Uncommitted))
}
