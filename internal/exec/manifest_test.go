package exec

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/makeflow/internal/plan"
)

func sampleResult() *ExecutionResult {
	start := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	r := &ExecutionResult{
		RunID:      "run-1",
		Root:       "build",
		TotalTasks: 3,
		StartTime:  start,
		EndTime:    start.Add(3 * time.Second),
	}
	r.add(&Result{Task: "fmt", Role: plan.RoleTask, Outcome: success(), Duration: time.Second})
	r.add(&Result{Task: "lint", Role: plan.RoleTask, Outcome: Outcome{Status: StatusFailed, Phase: PhaseExecution, Err: errors.New("lint failed"), Ignored: true}, Duration: 2 * time.Second})
	r.add(&Result{Task: "docs", Role: plan.RoleTask, Outcome: skipped()})
	return r
}

func TestExecutionResultCounts(t *testing.T) {
	r := sampleResult()

	if r.SuccessTasks != 1 || r.FailedTasks != 1 || r.SkippedTasks != 1 {
		t.Errorf("counts = %d/%d/%d, want 1/1/1", r.SuccessTasks, r.FailedTasks, r.SkippedTasks)
	}
	if r.IgnoredFailures != 1 {
		t.Errorf("IgnoredFailures = %d, want 1", r.IgnoredFailures)
	}
	if !r.Success() {
		t.Errorf("ignored failure should not fail the flow")
	}
	if r.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", r.Duration())
	}
}

func TestManifestFromResult(t *testing.T) {
	m := sampleResult().Manifest("development")

	if m.RunID != "run-1" || m.Root != "build" || m.Profile != "development" {
		t.Errorf("unexpected manifest header: %+v", m)
	}
	if !m.Success {
		t.Errorf("manifest should record success")
	}
	if len(m.Steps) != 3 {
		t.Fatalf("len(Steps) = %d, want 3", len(m.Steps))
	}
	lint := m.Steps[1]
	if lint.Status != "failed" || lint.Phase != "execution" || !lint.Ignored || lint.Error != "lint failed" {
		t.Errorf("unexpected lint step: %+v", lint)
	}
}

func TestSaveManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")
	m := sampleResult().Manifest("development")

	path, err := SaveManifest(m, dir)
	if err != nil {
		t.Fatalf("SaveManifest() error = %v", err)
	}
	if filepath.Base(path) != "20260301_123000_run-1.json" {
		t.Errorf("unexpected manifest file name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	var loaded RunManifest
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("unmarshal manifest: %v", err)
	}
	if loaded.RunID != m.RunID || len(loaded.Steps) != len(m.Steps) {
		t.Errorf("loaded manifest differs: %+v", loaded)
	}
}

func TestHashFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Makefile.toml")
	if err := os.WriteFile(path, []byte("[tasks.build]\ncommand = \"cargo\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	first, err := HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}
	if len(first) != 64 {
		t.Errorf("hash length = %d, want 64", len(first))
	}

	m := &RunManifest{}
	if err := m.AddInputHash("descriptor", path); err != nil {
		t.Fatalf("AddInputHash() error = %v", err)
	}
	if m.InputHashes["descriptor"] != first {
		t.Errorf("AddInputHash stored %s, want %s", m.InputHashes["descriptor"], first)
	}

	if _, err := HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Errorf("expected error for missing file")
	}
}

func TestPrintTimeSummary(t *testing.T) {
	var b strings.Builder
	sampleResult().PrintTimeSummary(&b)
	out := b.String()

	for _, want := range []string{"fmt", "lint", "33.3%", "66.7%", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("time summary missing %q:\n%s", want, out)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	var b strings.Builder
	sampleResult().PrintSummary(&b)

	if !strings.Contains(b.String(), "Failed:         1 (1 ignored)") {
		t.Errorf("unexpected summary:\n%s", b.String())
	}
}
