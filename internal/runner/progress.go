package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// etaWindow is the sliding window the throughput estimate is taken over.
const etaWindow = 2 * time.Minute

// ProgressSnapshot is the serialized form of progress.json.
type ProgressSnapshot struct {
	Run           string    `json:"run"`
	StartedAt     time.Time `json:"started_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Total         int       `json:"total"`
	Completed     int       `json:"completed"`
	Current       string    `json:"current,omitempty"`
	PercentDone   float64   `json:"percent_done"`
	ItemsPerMin   float64   `json:"items_per_min"`
	ETASeconds    int64     `json:"eta_seconds"`
	EstimatedDone time.Time `json:"estimated_done,omitempty"`
}

// ProgressTracker tracks batch progress and persists it to progress.json
// after every completed item. The ETA comes from the completion rate
// over the last two minutes, so early slow tickers do not poison the
// estimate for the whole run.
type ProgressTracker struct {
	mu          sync.Mutex
	path        string
	run         string
	total       int
	completed   int
	current     string
	startedAt   time.Time
	completions []time.Time
	now         func() time.Time

	onUpdate func(ProgressSnapshot)
}

// NewProgressTracker creates a tracker writing to path.
func NewProgressTracker(path, run string, total int) *ProgressTracker {
	return &ProgressTracker{
		path:      path,
		run:       run,
		total:     total,
		startedAt: time.Now().UTC(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// OnUpdate registers a callback invoked with every snapshot, used to
// push progress over WebSocket.
func (t *ProgressTracker) OnUpdate(fn func(ProgressSnapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpdate = fn
}

// Start records the item currently being processed.
func (t *ProgressTracker) Start(item string) error {
	t.mu.Lock()
	t.current = item
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return t.persist(snap)
}

// Complete records one finished item.
func (t *ProgressTracker) Complete() error {
	t.mu.Lock()
	t.completed++
	t.current = ""
	t.completions = append(t.completions, t.now())
	t.pruneLocked()
	snap := t.snapshotLocked()
	t.mu.Unlock()
	return t.persist(snap)
}

// Snapshot returns the current progress state.
func (t *ProgressTracker) Snapshot() ProgressSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *ProgressTracker) pruneLocked() {
	cutoff := t.now().Add(-etaWindow)
	kept := t.completions[:0]
	for _, c := range t.completions {
		if c.After(cutoff) {
			kept = append(kept, c)
		}
	}
	t.completions = kept
}

func (t *ProgressTracker) snapshotLocked() ProgressSnapshot {
	now := t.now()
	snap := ProgressSnapshot{
		Run:       t.run,
		StartedAt: t.startedAt,
		UpdatedAt: now,
		Total:     t.total,
		Completed: t.completed,
		Current:   t.current,
	}
	if t.total > 0 {
		snap.PercentDone = 100 * float64(t.completed) / float64(t.total)
	}

	if len(t.completions) > 0 {
		window := now.Sub(t.completions[0])
		if window < time.Second {
			window = time.Second
		}
		rate := float64(len(t.completions)) / window.Minutes()
		snap.ItemsPerMin = rate

		remaining := t.total - t.completed
		if rate > 0 && remaining > 0 {
			eta := time.Duration(float64(remaining)/rate*60) * time.Second
			snap.ETASeconds = int64(eta.Seconds())
			snap.EstimatedDone = now.Add(eta)
		}
	}
	return snap
}

// persist writes the snapshot atomically so status readers never see a
// torn file.
func (t *ProgressTracker) persist(snap ProgressSnapshot) error {
	t.mu.Lock()
	onUpdate := t.onUpdate
	t.mu.Unlock()
	if onUpdate != nil {
		onUpdate(snap)
	}

	if t.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal progress: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write progress file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace progress file: %w", err)
	}
	return nil
}
