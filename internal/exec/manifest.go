package exec

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"
)

// Manifest creates the persisted record of the flow.
func (r *ExecutionResult) Manifest(profile string) *RunManifest {
	m := &RunManifest{
		RunID:       r.RunID,
		Timestamp:   r.StartTime,
		Root:        r.Root,
		Profile:     profile,
		Success:     r.Success(),
		Duration:    r.Duration().String(),
		InputHashes: make(map[string]string),
		FailedTask:  r.FailedTask,
	}
	if r.Err != nil {
		m.ErrorMessage = r.Err.Error()
	}
	for _, res := range r.Results {
		step := StepManifest{
			Task:     res.Task,
			Role:     string(res.Role),
			Member:   res.Member,
			Status:   string(res.Outcome.Status),
			Phase:    string(res.Outcome.Phase),
			Ignored:  res.Outcome.Ignored,
			Duration: res.Duration.String(),
		}
		if res.Outcome.Err != nil {
			step.Error = res.Outcome.Err.Error()
		}
		m.Steps = append(m.Steps, step)
	}
	return m
}

// SaveManifest writes a run manifest to dir and returns its path.
func SaveManifest(manifest *RunManifest, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create manifest directory: %w", err)
	}

	ts := manifest.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	filename := fmt.Sprintf("%s_%s.json", ts.Format("20060102_150405"), manifest.RunID)
	path := filepath.Join(dir, filename)

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// HashFile computes the BLAKE3 hash of a file.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash file: %w", err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// AddInputHash records the hash of an input file, such as the descriptor.
func (m *RunManifest) AddInputHash(name, path string) error {
	hash, err := HashFile(path)
	if err != nil {
		return err
	}
	if m.InputHashes == nil {
		m.InputHashes = make(map[string]string)
	}
	m.InputHashes[name] = hash
	return nil
}
