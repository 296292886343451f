package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/makeflow/internal/errors"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

func TestValidateGraph(t *testing.T) {
	n := task.NewNormalizer(diamond(), task.Linux)
	assert.NoError(t, ValidateGraph(n))

	broken := diamond()
	broken["setup"] = task.Task{Dependencies: []string{"build"}}
	err := ValidateGraph(task.NewNormalizer(broken, task.Linux))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePlanCyclicDep))

	missing := diamond()
	missing["setup"] = task.Task{Dependencies: []string{"ghost"}}
	err = ValidateGraph(task.NewNormalizer(missing, task.Linux))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodePlanTaskMissing))
}

func TestValidateGraphRunTaskCycles(t *testing.T) {
	tests := []struct {
		name  string
		tasks map[string]task.Task
	}{
		{"self", map[string]task.Task{
			"loop": {RunTask: &task.RunTask{Names: []string{"loop"}}},
		}},
		{"forked pair", map[string]task.Task{
			"a": {RunTask: &task.RunTask{Names: []string{"b"}, Fork: true}},
			"b": {RunTask: &task.RunTask{Names: []string{"a"}}},
		}},
		{"route", map[string]task.Task{
			"a": {RunTask: &task.RunTask{Routes: []task.Route{{Names: []string{"b"}}}}},
			"b": {Command: "true", Dependencies: []string{"a"}},
		}},
		{"cleanup", map[string]task.Task{
			"a": {RunTask: &task.RunTask{Names: []string{"b"}, Fork: true, CleanupTask: "a"}},
			"b": {Command: "true"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGraph(task.NewNormalizer(tt.tasks, task.Linux))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodePlanCyclicDep))
		})
	}
}

func TestValidateGraphRunTaskChain(t *testing.T) {
	tasks := map[string]task.Task{
		"ci":    {RunTask: &task.RunTask{Names: []string{"build", "ghost"}}},
		"build": {Command: "cargo", Dependencies: []string{"fmt"}},
		"fmt":   {Command: "cargo"},
	}
	assert.NoError(t, ValidateGraph(task.NewNormalizer(tasks, task.Linux)))
}
