package plan

import (
	"regexp"

	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// Options control how a flow is planned.
type Options struct {
	InitTask string
	EndTask  string
	// SkipInitEnd disables init and end injection.
	SkipInitEnd bool
	// Top is true for the outermost invocation only; nested flows never
	// receive init and end steps.
	Top          bool
	AllowPrivate bool
	SkipTasks    *regexp.Regexp

	NoWorkspace        bool
	DefaultToWorkspace bool
	// Members are the resolved workspace member directories.
	Members []string
}

// Planner turns task names into flows.
type Planner struct {
	normalizer *task.Normalizer
	opts       Options
}

// NewPlanner creates a planner over the tasks of n.
func NewPlanner(n *task.Normalizer, opts Options) *Planner {
	return &Planner{normalizer: n, opts: opts}
}

// Normalizer returns the normalizer the planner resolves tasks with.
func (p *Planner) Normalizer() *task.Normalizer { return p.normalizer }

// Sub returns a planner for flows nested in the current one: no init or end
// steps and no workspace expansion.
func (p *Planner) Sub() *Planner {
	opts := p.opts
	opts.SkipInitEnd = true
	opts.Top = false
	opts.NoWorkspace = true
	opts.Members = nil
	return &Planner{normalizer: p.normalizer, opts: opts}
}

// Plan builds the flow for root.
//
// Dependencies are expanded depth-first before their dependents. A task
// reachable through several paths is scheduled once, at its first
// occurrence. Init and end steps wrap the whole flow of a top-level,
// non-skipped invocation.
func (p *Planner) Plan(root string) (*Flow, error) {
	rootTask, err := p.normalizer.Normalize(root)
	if err != nil {
		return nil, err
	}
	if rootTask.IsPrivate() && !p.opts.AllowPrivate {
		return nil, errors.NewPrivateTaskError(root)
	}

	flow := &Flow{Root: rootTask.Name}
	scheduled := make(map[string]bool)

	if p.injectInitEnd() {
		if err := p.addSingle(flow, scheduled, p.opts.InitTask, RoleInit); err != nil {
			return nil, err
		}
	}

	if p.isWorkspace(rootTask) {
		flow.Workspace = true
		for _, member := range p.opts.Members {
			flow.Steps = append(flow.Steps, Step{
				Name:   rootTask.Name,
				Role:   RoleMember,
				Member: member,
				Task:   rootTask,
			})
		}
	} else {
		w := &walker{planner: p, flow: flow, scheduled: scheduled, onStack: make(map[string]bool)}
		if err := w.visit(root); err != nil {
			return nil, err
		}
	}

	if p.injectInitEnd() {
		if err := p.addSingle(flow, scheduled, p.opts.EndTask, RoleEnd); err != nil {
			return nil, err
		}
	}

	return flow, nil
}

// PlanTasks builds one flow running names in order, sharing de-duplication
// across them. It never injects init or end steps.
func (p *Planner) PlanTasks(names []string) (*Flow, error) {
	flow := &Flow{}
	if len(names) > 0 {
		flow.Root = names[0]
	}
	w := &walker{planner: p, flow: flow, scheduled: make(map[string]bool), onStack: make(map[string]bool)}
	for _, name := range names {
		if err := w.visit(name); err != nil {
			return nil, err
		}
	}
	return flow, nil
}

func (p *Planner) injectInitEnd() bool {
	return p.opts.Top && !p.opts.SkipInitEnd
}

func (p *Planner) isWorkspace(root task.Task) bool {
	if p.opts.NoWorkspace || len(p.opts.Members) == 0 {
		return false
	}
	if root.Workspace != nil {
		return *root.Workspace
	}
	return p.opts.DefaultToWorkspace
}

func (p *Planner) addSingle(flow *Flow, scheduled map[string]bool, name string, role Role) error {
	if name == "" || !p.normalizer.Has(name) {
		return nil
	}
	t, err := p.normalizer.Normalize(name)
	if err != nil {
		return err
	}
	if scheduled[t.Name] || t.IsDisabled() || p.skipped(t.Name) {
		return nil
	}
	scheduled[t.Name] = true
	flow.Steps = append(flow.Steps, Step{Name: t.Name, Role: role, Task: t})
	return nil
}

func (p *Planner) skipped(name string) bool {
	return p.opts.SkipTasks != nil && p.opts.SkipTasks.MatchString(name)
}

type walker struct {
	planner   *Planner
	flow      *Flow
	scheduled map[string]bool
	onStack   map[string]bool
	stack     []string
}

func (w *walker) visit(name string) error {
	t, err := w.planner.normalizer.Normalize(name)
	if err != nil {
		return err
	}

	if w.onStack[t.Name] {
		cycle := append(append([]string{}, w.stack[w.indexOf(t.Name):]...), t.Name)
		return errors.NewCyclicDependencyError(cycle)
	}
	if w.scheduled[t.Name] {
		return nil
	}
	if t.IsDisabled() {
		w.scheduled[t.Name] = true
		return nil
	}

	w.onStack[t.Name] = true
	w.stack = append(w.stack, t.Name)
	for _, dep := range t.Dependencies {
		if err := w.visit(dep); err != nil {
			return err
		}
	}
	w.stack = w.stack[:len(w.stack)-1]
	w.onStack[t.Name] = false

	w.scheduled[t.Name] = true
	if !w.planner.skipped(t.Name) {
		w.flow.Steps = append(w.flow.Steps, Step{Name: t.Name, Role: RoleTask, Task: t})
	}
	return nil
}

func (w *walker) indexOf(name string) int {
	for i, n := range w.stack {
		if n == name {
			return i
		}
	}
	return 0
}
