package ux

import (
	"fmt"
	"sort"
	"strings"

	"github.com/felixgeelhaar/makeflow/internal/plan"
	"github.com/felixgeelhaar/makeflow/internal/task"
)

// NoCategory groups tasks without a category.
const NoCategory = "No Category"

// PlanView is the printable form of a flow.
type PlanView struct {
	Root      string     `json:"root" yaml:"root"`
	Workspace bool       `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Steps     []StepView `json:"steps" yaml:"steps"`
}

// StepView is one printable step.
type StepView struct {
	Name        string `json:"name" yaml:"name"`
	Role        string `json:"role" yaml:"role"`
	Member      string `json:"member,omitempty" yaml:"member,omitempty"`
	Kind        string `json:"kind" yaml:"kind"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// NewPlanView builds the view of flow.
func NewPlanView(flow *plan.Flow) PlanView {
	v := PlanView{Root: flow.Root, Workspace: flow.Workspace, Steps: []StepView{}}
	for _, s := range flow.Steps {
		t := s.Task
		v.Steps = append(v.Steps, StepView{
			Name:        s.Name,
			Role:        string(s.Role),
			Member:      s.Member,
			Kind:        string(t.Kind()),
			Description: t.Description,
		})
	}
	return v
}

// RenderText renders the numbered step list.
func (v PlanView) RenderText(s *Styles) string {
	var b strings.Builder
	b.WriteString(s.Title.Render("Execution plan for "+v.Root) + "\n")
	if len(v.Steps) == 0 {
		b.WriteString(s.Muted.Render("  (no steps)") + "\n")
		return b.String()
	}
	for i, step := range v.Steps {
		line := fmt.Sprintf("  %2d. %s", i+1, s.Task.Render(step.Name))
		switch {
		case step.Member != "":
			line += s.Muted.Render(" [member " + step.Member + "]")
		case step.Role != string(plan.RoleTask):
			line += s.Muted.Render(" [" + step.Role + "]")
		}
		if step.Description != "" {
			line += s.Muted.Render(" - " + step.Description)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// TaskList is the printable list of public tasks grouped by category.
type TaskList struct {
	Categories []CategoryView `json:"categories" yaml:"categories"`
}

// CategoryView is one category of a TaskList.
type CategoryView struct {
	Name  string     `json:"name" yaml:"name"`
	Tasks []TaskView `json:"tasks" yaml:"tasks"`
}

// TaskView is one listed task.
type TaskView struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Deprecated  bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
}

// NewTaskList groups the non-private tasks by category. Categories and the
// tasks within them are sorted by name.
func NewTaskList(tasks map[string]task.Task) TaskList {
	groups := map[string][]TaskView{}
	for name, t := range tasks {
		if t.IsPrivate() {
			continue
		}
		category := t.Category
		if category == "" {
			category = NoCategory
		}
		desc := t.Description
		if desc == "" && t.Alias != "" {
			desc = "Alias for " + t.Alias
		}
		groups[category] = append(groups[category], TaskView{Name: name, Description: desc, Deprecated: t.IsDeprecated()})
	}

	list := TaskList{Categories: []CategoryView{}}
	for name, views := range groups {
		sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
		list.Categories = append(list.Categories, CategoryView{Name: name, Tasks: views})
	}
	sort.Slice(list.Categories, func(i, j int) bool { return list.Categories[i].Name < list.Categories[j].Name })
	return list
}

// RenderText renders each category followed by its tasks.
func (l TaskList) RenderText(s *Styles) string {
	width := 0
	for _, c := range l.Categories {
		for _, t := range c.Tasks {
			width = max(width, len(t.Name))
		}
	}

	var b strings.Builder
	for i, c := range l.Categories {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(s.Category.Render(c.Name) + "\n")
		b.WriteString(s.Muted.Render(strings.Repeat("-", len(c.Name))) + "\n")
		for _, t := range c.Tasks {
			desc := t.Description
			if desc == "" {
				desc = "No Description."
			}
			if t.Deprecated {
				desc = s.Warning.Render("DEPRECATED") + " " + desc
			}
			fmt.Fprintf(&b, "%s - %s\n", s.Task.Render(fmt.Sprintf("%-*s", width, t.Name)), desc)
		}
	}
	return b.String()
}
