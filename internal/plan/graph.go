package plan

import (
	"fmt"

	"github.com/stevenle/topsort"

	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// ValidateGraph normalizes every task of n and checks the whole task graph:
// each dependency must exist and no task may reach itself, transitively,
// through dependencies or run_task targets. It reports configuration errors
// before anything runs.
func ValidateGraph(n *task.Normalizer) error {
	tasks, err := n.NormalizeAll()
	if err != nil {
		return err
	}

	graph := topsort.NewGraph()
	for _, name := range n.Names() {
		t := tasks[name]
		graph.AddNode(t.Name)
		for _, dep := range t.Dependencies {
			resolved, ok := tasks[dep]
			if !ok {
				return errors.NewTaskNotFoundError(dep).
					WithSuggestion(fmt.Sprintf("Task %s lists %s as a dependency", name, dep))
			}
			graph.AddEdge(t.Name, resolved.Name)
		}
		// unknown run_task targets fail when the task runs
		for _, target := range runTargets(&t) {
			if resolved, ok := tasks[target]; ok {
				graph.AddEdge(t.Name, resolved.Name)
			}
		}
	}

	for _, name := range n.Names() {
		if _, err := graph.TopSort(tasks[name].Name); err != nil {
			return errors.Wrap(errors.ErrCodePlanCyclicDep, "circular dependency detected", err).
				WithSuggestion("Remove one of the dependencies in the cycle")
		}
	}
	return nil
}

// runTargets lists every task t may invoke through run_task.
func runTargets(t *task.Task) []string {
	if t.RunTask == nil {
		return nil
	}
	targets := append([]string{}, t.RunTask.Names...)
	for _, r := range t.RunTask.Routes {
		targets = append(targets, r.Names...)
	}
	if t.RunTask.CleanupTask != "" {
		targets = append(targets, t.RunTask.CleanupTask)
	}
	return targets
}
