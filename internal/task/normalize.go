package task

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/errors"
)

// Normalizer resolves raw tasks of one task map into concrete tasks for a
// platform. Results are memoized per requested name.
type Normalizer struct {
	tasks    map[string]Task
	platform Platform
	cache    map[string]Task
}

// NewNormalizer creates a normalizer over tasks. The map is not copied and
// must not be modified while the normalizer is in use.
func NewNormalizer(tasks map[string]Task, platform Platform) *Normalizer {
	return &Normalizer{
		tasks:    tasks,
		platform: platform,
		cache:    make(map[string]Task),
	}
}

// Platform returns the platform tasks are normalized for.
func (n *Normalizer) Platform() Platform { return n.platform }

// Has reports whether a raw task with the given name exists.
func (n *Normalizer) Has(name string) bool {
	_, ok := n.tasks[name]
	return ok
}

// Names returns the sorted names of all raw tasks.
func (n *Normalizer) Names() []string {
	names := make([]string, 0, len(n.tasks))
	for name := range n.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Raw returns the raw definition of a task.
func (n *Normalizer) Raw(name string) (Task, bool) {
	t, ok := n.tasks[name]
	return t, ok
}

// Normalize resolves the named task. Aliases are followed first, then the
// extend chain is merged base-first, then the platform block is applied.
// The returned task carries the name of the final alias target.
func (n *Normalizer) Normalize(name string) (Task, error) {
	if t, ok := n.cache[name]; ok {
		return t, nil
	}

	target, raw, err := n.resolveAlias(name)
	if err != nil {
		return Task{}, err
	}

	merged, err := n.resolveExtend(target, raw, nil)
	if err != nil {
		return Task{}, err
	}

	t, err := finish(merged, n.platform)
	if err != nil {
		return Task{}, err
	}

	n.cache[name] = t
	return t, nil
}

// NormalizeAll resolves every task of the map.
func (n *Normalizer) NormalizeAll() (map[string]Task, error) {
	out := make(map[string]Task, len(n.tasks))
	for _, name := range n.Names() {
		t, err := n.Normalize(name)
		if err != nil {
			return nil, err
		}
		out[name] = t
	}
	return out, nil
}

func (n *Normalizer) resolveAlias(name string) (string, Task, error) {
	raw, ok := n.tasks[name]
	if !ok {
		return "", Task{}, errors.NewTaskNotFoundError(name)
	}

	chain := []string{name}
	current := name
	for {
		next := raw.AliasFor(n.platform)
		if next == "" {
			return current, raw, nil
		}
		for _, seen := range chain {
			if seen == next {
				return "", Task{}, errors.NewAliasCycleError(name, append(chain, next))
			}
		}
		chain = append(chain, next)

		raw, ok = n.tasks[next]
		if !ok {
			return "", Task{}, errors.NewTaskNotFoundError(next).
				WithSuggestion(fmt.Sprintf("Task %s is an alias of %s", current, next))
		}
		current = next
	}
}

func (n *Normalizer) resolveExtend(name string, raw Task, visiting []string) (Task, error) {
	raw.Name = name
	if raw.Extend == "" {
		return raw, nil
	}

	visiting = append(visiting, name)
	for _, seen := range visiting {
		if seen == raw.Extend {
			return Task{}, errors.Newf(errors.ErrCodeExtendCycle,
				"detected cycle while resolving extend of task %s: %s", visiting[0], strings.Join(append(visiting, raw.Extend), " -> "))
		}
	}

	baseRaw, ok := n.tasks[raw.Extend]
	if !ok {
		return Task{}, errors.NewExtendNotFoundError(name, raw.Extend)
	}
	base, err := n.resolveExtend(raw.Extend, baseRaw, visiting)
	if err != nil {
		return Task{}, err
	}

	child := raw
	child.Extend = ""
	merged := Merge(base, child)
	merged.Name = name
	merged.Extend = ""
	return merged, nil
}

// Normalize resolves a single task that needs no task map: it must not be
// an alias or extend another task. Applying it to an already normalized
// task returns the task unchanged.
func Normalize(t Task, p Platform) (Task, error) {
	if t.AliasFor(p) != "" || t.Extend != "" {
		return Task{}, errors.Newf(errors.ErrCodeTaskInvalid,
			"task %s refers to other tasks and needs a task map to be normalized", t.Name)
	}
	return finish(t, p)
}

func finish(t Task, p Platform) (Task, error) {
	if err := checkBlocks(t); err != nil {
		return Task{}, err
	}

	out := ApplyPlatform(t, p)
	out.Alias = ""
	out.LinuxAlias = ""
	out.WindowsAlias = ""
	out.MacAlias = ""
	out.Extend = ""
	out.Clear = nil
	out.Linux = nil
	out.Windows = nil
	out.Mac = nil

	if out.directives() > 1 {
		return Task{}, errors.Newf(errors.ErrCodeTaskInvalid,
			"task %s defines more than one of command, script, run_task", out.Name).
			WithSuggestion("Keep a single directive per task and move the rest into dependencies")
	}
	if out.RunTask != nil && len(out.RunTask.Names) == 0 && len(out.RunTask.Routes) == 0 {
		return Task{}, errors.Newf(errors.ErrCodeTaskInvalid, "task %s has an empty run_task", out.Name)
	}
	return out, nil
}

func checkBlocks(t Task) error {
	for _, p := range []Platform{Linux, Windows, Mac} {
		block := t.Block(p)
		if block == nil {
			continue
		}
		switch {
		case block.Extend != "":
			return platformError(t.Name, p, "extend")
		case block.Alias != "" || block.LinuxAlias != "" || block.WindowsAlias != "" || block.MacAlias != "":
			return platformError(t.Name, p, "alias")
		case block.Linux != nil || block.Windows != nil || block.Mac != nil:
			return platformError(t.Name, p, "nested platform blocks")
		}
	}
	return nil
}

func platformError(name string, p Platform, field string) error {
	return errors.Newf(errors.ErrCodePlatformOverrideBad,
		"task %s: %s override cannot declare %s", name, p, field).
		WithSuggestion("Declare aliases and extend on the task itself")
}
