package operations

import "time"

// Stage identifiers, in pipeline order.
const (
	StageIDBootstrap = "bootstrap"
	StageIDMacro     = "macro"
	StageIDTickers   = "tickers"
	StageIDArchive   = "archive"
	StageIDSnapshot  = "snapshot"
)

// Stage display names.
const (
	StageNameBootstrap = "Bootstrap Layout"
	StageNameMacro     = "Macro Features"
	StageNameTickers   = "Ticker Features"
	StageNameArchive   = "Archive Output"
	StageNameSnapshot  = "Git Snapshot"
)

// StageStatus is the lifecycle state of a stage execution.
type StageStatus string

const (
	StatusPending   StageStatus = "pending"
	StatusRunning   StageStatus = "running"
	StatusCompleted StageStatus = "completed"
	StatusFailed    StageStatus = "failed"
	StatusSkipped   StageStatus = "skipped"
)

// Per-stage execution timeouts.
const (
	BootstrapTimeout = 2 * time.Minute
	MacroTimeout     = 15 * time.Minute
	TickersTimeout   = 90 * time.Minute
	ArchiveTimeout   = 10 * time.Minute
	SnapshotTimeout  = 5 * time.Minute
)

// RetryConfig controls transient-failure retries of a stage.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig matches the upstream API retry posture: a couple
// of quick retries, never minutes of waiting.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
}

// StageExecution is the recorded outcome of one stage run.
type StageExecution struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Status      StageStatus `json:"status"`
	StartedAt   time.Time   `json:"started_at"`
	CompletedAt time.Time   `json:"completed_at,omitempty"`
	Duration    string      `json:"duration,omitempty"`
	Attempts    int         `json:"attempts"`
	Error       string      `json:"error,omitempty"`
	BestEffort  bool        `json:"best_effort"`
}
