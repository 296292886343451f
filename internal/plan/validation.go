package plan

import (
	"fmt"
	"strings"
)

// Validate checks the ordering guarantees of a planned flow: every task step
// appears once, and every dependency scheduled in the flow precedes its
// dependent.
func (f *Flow) Validate() error {
	position := make(map[string]int)
	for i, step := range f.Steps {
		if step.Role == RoleMember {
			continue
		}
		if strings.TrimSpace(step.Name) == "" {
			return fmt.Errorf("step at index %d has no name", i)
		}
		if _, dup := position[step.Name]; dup {
			return fmt.Errorf("duplicate step %q at index %d", step.Name, i)
		}
		position[step.Name] = i
	}

	for i, step := range f.Steps {
		for _, dep := range step.Task.Dependencies {
			at, ok := position[dep]
			if !ok {
				continue
			}
			if at > i {
				return fmt.Errorf("step %q at index %d runs before its dependency %q at index %d", step.Name, i, dep, at)
			}
		}
	}

	return f.checkCircularDependencies()
}

// checkCircularDependencies detects cycles among the dependencies of the
// flow's steps.
func (f *Flow) checkCircularDependencies() error {
	graph := make(map[string][]string)
	for _, step := range f.Steps {
		graph[step.Name] = step.Task.Dependencies
	}

	visited := make(map[string]bool)
	recStack := make(map[string]bool)

	var hasCycle func(name string, path []string) error
	hasCycle = func(name string, path []string) error {
		visited[name] = true
		recStack[name] = true
		path = append(path, name)

		for _, dep := range graph[name] {
			if !visited[dep] {
				if err := hasCycle(dep, path); err != nil {
					return err
				}
			} else if recStack[dep] {
				cyclePath := append(path, dep)
				return fmt.Errorf("circular dependency detected: %s", strings.Join(cyclePath, " -> "))
			}
		}

		recStack[name] = false
		return nil
	}

	for _, step := range f.Steps {
		if !visited[step.Name] {
			if err := hasCycle(step.Name, []string{}); err != nil {
				return err
			}
		}
	}

	return nil
}
