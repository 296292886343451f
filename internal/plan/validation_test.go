package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/makeflow/internal/task"
)

func TestFlowValidate(t *testing.T) {
	step := func(name string, deps ...string) Step {
		return Step{Name: name, Role: RoleTask, Task: task.Task{Name: name, Dependencies: deps}}
	}

	tests := []struct {
		name    string
		flow    Flow
		wantErr string
	}{
		{
			name: "valid order",
			flow: Flow{Steps: []Step{step("a"), step("b", "a"), step("c", "a", "b")}},
		},
		{
			name:    "duplicate",
			flow:    Flow{Steps: []Step{step("a"), step("a")}},
			wantErr: "duplicate step",
		},
		{
			name:    "dependency after dependent",
			flow:    Flow{Steps: []Step{step("b", "a"), step("a")}},
			wantErr: "runs before its dependency",
		},
		{
			name:    "unnamed",
			flow:    Flow{Steps: []Step{step(" ")}},
			wantErr: "has no name",
		},
		{
			name: "members may repeat",
			flow: Flow{Steps: []Step{
				{Name: "build", Role: RoleMember, Member: "a"},
				{Name: "build", Role: RoleMember, Member: "b"},
			}},
		},
		{
			name:    "self dependency",
			flow:    Flow{Steps: []Step{step("a", "a")}},
			wantErr: "circular dependency detected: a -> a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.flow.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
