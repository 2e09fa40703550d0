package operations

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// RunManifest records one pipeline run: which stages ran, their
// outcomes, and the published run results. It is persisted to
// status/manifest.json after every stage transition so an interrupted
// run leaves an inspectable trail.
type RunManifest struct {
	mu sync.Mutex

	RunID       string                 `json:"run_id"`
	StartedAt   time.Time              `json:"started_at"`
	CompletedAt time.Time              `json:"completed_at,omitempty"`
	Status      StageStatus            `json:"status"`
	Stages      []StageExecution       `json:"stages"`
	Results     map[string]interface{} `json:"results,omitempty"`

	path string
}

// NewRunManifest creates a manifest persisted at path.
func NewRunManifest(runID, path string) *RunManifest {
	return &RunManifest{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Status:    StatusRunning,
		path:      path,
	}
}

// RecordStage appends or updates a stage execution record and persists
// the manifest.
func (m *RunManifest) RecordStage(exec StageExecution) error {
	m.mu.Lock()
	updated := false
	for i := range m.Stages {
		if m.Stages[i].ID == exec.ID {
			m.Stages[i] = exec
			updated = true
			break
		}
	}
	if !updated {
		m.Stages = append(m.Stages, exec)
	}
	m.mu.Unlock()
	return m.save()
}

// Finish marks the run complete and persists the final results.
func (m *RunManifest) Finish(status StageStatus, results map[string]interface{}) error {
	m.mu.Lock()
	m.Status = status
	m.CompletedAt = time.Now().UTC()
	m.Results = results
	m.mu.Unlock()
	return m.save()
}

// StageRecords returns a copy of the recorded stage executions.
func (m *RunManifest) StageRecords() []StageExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StageExecution, len(m.Stages))
	copy(out, m.Stages)
	return out
}

// save writes the manifest atomically. An empty path disables
// persistence, used by tests and the HTTP-triggered dry runs.
func (m *RunManifest) save() error {
	if m.path == "" {
		return nil
	}

	m.mu.Lock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}

// LoadManifest reads a persisted manifest from path.
func LoadManifest(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	m.path = path
	return &m, nil
}
