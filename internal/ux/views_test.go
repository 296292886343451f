package ux

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/makeflow/internal/plan"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

func sampleFlow() *plan.Flow {
	return &plan.Flow{Root: "build", Steps: []plan.Step{
		{Name: "init", Role: plan.RoleInit},
		{Name: "fmt", Role: plan.RoleTask, Task: task.Task{Command: "cargo", Description: "Format sources"}},
		{Name: "build", Role: plan.RoleTask, Task: task.Task{Script: &task.Script{Lines: []string{"echo"}}}},
		{Name: "end", Role: plan.RoleEnd},
	}}
}

func TestPlanViewText(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("text", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(NewPlanView(sampleFlow())))

	want := `Execution plan for build
   1. init [init]
   2. fmt - Format sources
   3. build
   4. end [end]
`
	assert.Equal(t, want, buf.String())
}

func TestPlanViewJSON(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("json", &FormatterOptions{Writer: &buf, Compact: true})
	require.NoError(t, err)

	require.NoError(t, f.Format(NewPlanView(sampleFlow())))
	out := buf.String()
	assert.Contains(t, out, `"root":"build"`)
	assert.Contains(t, out, `{"name":"fmt","role":"task","kind":"command","description":"Format sources"}`)
	assert.Contains(t, out, `"kind":"script"`)
}

func TestPlanViewMembers(t *testing.T) {
	flow := &plan.Flow{Root: "test", Workspace: true, Steps: []plan.Step{
		{Name: "test", Role: plan.RoleMember, Member: "crates/a"},
	}}
	out := NewPlanView(flow).RenderText(PlainStyles())
	assert.Contains(t, out, "test [member crates/a]")
}

func TestTaskList(t *testing.T) {
	tasks := map[string]task.Task{
		"build":  {Category: "Build", Description: "Compile"},
		"check":  {Category: "Build"},
		"helper": {Private: task.Bool(true)},
		"old":    {Deprecated: &task.Deprecation{Deprecated: true}},
		"b":      {Alias: "build"},
	}

	list := NewTaskList(tasks)
	require.Len(t, list.Categories, 2)
	assert.Equal(t, "Build", list.Categories[0].Name)
	assert.Equal(t, NoCategory, list.Categories[1].Name)
	assert.Equal(t, []TaskView{{Name: "b", Description: "Alias for build"}, {Name: "old", Deprecated: true}}, list.Categories[1].Tasks)

	out := list.RenderText(PlainStyles())
	assert.Contains(t, out, "Build\n-----\nbuild - Compile\ncheck - No Description.\n")
	assert.Contains(t, out, "old   - DEPRECATED No Description.")
	assert.NotContains(t, out, "helper")
}

func TestTaskListYAML(t *testing.T) {
	var buf bytes.Buffer
	f, err := NewFormatter("yaml", &FormatterOptions{Writer: &buf})
	require.NoError(t, err)

	require.NoError(t, f.Format(NewTaskList(map[string]task.Task{"build": {}})))
	assert.True(t, strings.Contains(buf.String(), "name: build"))
}

func TestBuildDone(t *testing.T) {
	s := PlainStyles()
	assert.Equal(t, "Build Done in 1.50 seconds.", s.BuildDone(1500*time.Millisecond))
	assert.Equal(t, "Build Failed: task lint did not complete.", s.BuildFailed("lint"))
}
