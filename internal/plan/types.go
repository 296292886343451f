// Package plan expands a requested task and its transitive dependencies into
// an ordered, de-duplicated flow of steps.
package plan

import "github.com/felixgeelhaar/makeflow/internal/task"

// Role tells why a step is part of a flow.
type Role string

const (
	RoleInit   Role = "init"
	RoleTask   Role = "task"
	RoleEnd    Role = "end"
	RoleMember Role = "member"
)

// Flow is the ordered sequence of steps derived from one request.
type Flow struct {
	Root      string `json:"root" yaml:"root"`
	Workspace bool   `json:"workspace,omitempty" yaml:"workspace,omitempty"`
	Steps     []Step `json:"steps" yaml:"steps"`
}

// Step is one planned task execution. Member steps run the root task as a
// nested flow inside a workspace member directory.
type Step struct {
	Name   string    `json:"name" yaml:"name"`
	Role   Role      `json:"role" yaml:"role"`
	Member string    `json:"member,omitempty" yaml:"member,omitempty"`
	Task   task.Task `json:"-" yaml:"-"`
}

// Names returns the step names in order.
func (f *Flow) Names() []string {
	names := make([]string, 0, len(f.Steps))
	for _, s := range f.Steps {
		names = append(names, s.Name)
	}
	return names
}

// Len returns the number of steps.
func (f *Flow) Len() int { return len(f.Steps) }
