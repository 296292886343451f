package exec

import (
	"time"

	"github.com/felixgeelhaar/makeflow/internal/plan"
)

// Status is the outcome of one task execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Phase names the stage of a task execution a failure happened in.
type Phase string

const (
	PhaseCondition Phase = "condition"
	PhaseInstall   Phase = "install"
	PhaseExecution Phase = "execution"
)

// Outcome is the result of executing one task.
type Outcome struct {
	Status Status
	// Phase is set for failures.
	Phase Phase
	Err   error
	// Ignored marks a failure the task's ignore_errors flag tolerated.
	Ignored bool
}

// Fatal reports whether the outcome stops the flow.
func (o Outcome) Fatal() bool {
	return o.Status == StatusFailed && !o.Ignored
}

func success() Outcome { return Outcome{Status: StatusSuccess} }

func skipped() Outcome { return Outcome{Status: StatusSkipped} }

func failed(phase Phase, err error) Outcome {
	return Outcome{Status: StatusFailed, Phase: phase, Err: err}
}

// Result records one executed step.
type Result struct {
	Task      string
	Role      plan.Role
	Member    string
	Outcome   Outcome
	StartedAt time.Time
	Duration  time.Duration
}

// RunManifest is the persisted record of one flow.
type RunManifest struct {
	RunID        string            `json:"run_id"`
	Timestamp    time.Time         `json:"timestamp"`
	Root         string            `json:"root"`
	Profile      string            `json:"profile"`
	Success      bool              `json:"success"`
	Duration     string            `json:"duration"`
	Steps        []StepManifest    `json:"steps"`
	InputHashes  map[string]string `json:"input_hashes,omitempty"`
	FailedTask   string            `json:"failed_task,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// StepManifest is the record of one step in a RunManifest.
type StepManifest struct {
	Task     string `json:"task"`
	Role     string `json:"role"`
	Member   string `json:"member,omitempty"`
	Status   string `json:"status"`
	Phase    string `json:"phase,omitempty"`
	Ignored  bool   `json:"ignored,omitempty"`
	Duration string `json:"duration"`
	Error    string `json:"error,omitempty"`
}
