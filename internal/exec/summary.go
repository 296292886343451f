package exec

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ExecutionResult contains the results of executing a flow.
type ExecutionResult struct {
	RunID           string
	Root            string
	TotalTasks      int
	SuccessTasks    int
	FailedTasks     int
	SkippedTasks    int
	IgnoredFailures int
	Results         []*Result
	// FailedTask names the step that stopped the flow.
	FailedTask string
	Err        error
	StartTime  time.Time
	EndTime    time.Time
}

func (r *ExecutionResult) add(res *Result) {
	r.Results = append(r.Results, res)
	switch res.Outcome.Status {
	case StatusSuccess:
		r.SuccessTasks++
	case StatusSkipped:
		r.SkippedTasks++
	case StatusFailed:
		r.FailedTasks++
		if res.Outcome.Ignored {
			r.IgnoredFailures++
		}
	}
}

// Success reports whether the flow completed without a failure that
// stopped it. Ignored failures do not count.
func (r *ExecutionResult) Success() bool {
	return r.Err == nil
}

// Duration returns the wall time of the flow.
func (r *ExecutionResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// NotRun returns the number of planned steps that never started.
func (r *ExecutionResult) NotRun() int {
	return r.TotalTasks - len(r.Results)
}

// PrintSummary outputs the execution summary.
func (r *ExecutionResult) PrintSummary(w io.Writer) {
	sep := strings.Repeat("=", 60)
	fmt.Fprintln(w, "\n"+sep)
	fmt.Fprintln(w, "Execution Summary")
	fmt.Fprintln(w, sep)
	fmt.Fprintf(w, "Run ID:         %s\n", r.RunID)
	fmt.Fprintf(w, "Total Tasks:    %d\n", r.TotalTasks)
	fmt.Fprintf(w, "Successful:     %d\n", r.SuccessTasks)
	fmt.Fprintf(w, "Failed:         %d (%d ignored)\n", r.FailedTasks, r.IgnoredFailures)
	fmt.Fprintf(w, "Skipped:        %d\n", r.SkippedTasks)
	fmt.Fprintf(w, "Not Run:        %d\n", r.NotRun())
	fmt.Fprintf(w, "Duration:       %v\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintln(w, sep)
}

// PrintTimeSummary prints how long every executed step took and its share
// of the total.
func (r *ExecutionResult) PrintTimeSummary(w io.Writer) {
	var total time.Duration
	width := len("Task")
	for _, res := range r.Results {
		total += res.Duration
		if n := len(stepLabel(res)); n > width {
			width = n
		}
	}

	fmt.Fprintf(w, "%-*s  %12s  %6s\n", width, "Task", "Duration", "%")
	fmt.Fprintln(w, strings.Repeat("-", width+22))
	for _, res := range r.Results {
		share := 0.0
		if total > 0 {
			share = float64(res.Duration) / float64(total) * 100
		}
		fmt.Fprintf(w, "%-*s  %12s  %5.1f%%\n", width, stepLabel(res), res.Duration.Round(time.Millisecond), share)
	}
	fmt.Fprintln(w, strings.Repeat("-", width+22))
	fmt.Fprintf(w, "%-*s  %12s\n", width, "Total", total.Round(time.Millisecond))
}

func stepLabel(res *Result) string {
	if res.Member != "" {
		return res.Task + " [" + res.Member + "]"
	}
	return res.Task
}
