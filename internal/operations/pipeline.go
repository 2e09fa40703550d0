package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	apperrors "divrisk/internal/errors"
	"divrisk/internal/infrastructure"
)

// Pipeline executes stages in registration order. Core stages are
// fail-fast; best-effort stages log their failure and let the run
// complete.
type Pipeline struct {
	stages   []Stage
	logger   *slog.Logger
	metrics  *infrastructure.PipelineMetrics
	retry    RetryConfig
	manifest *RunManifest

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPipeline creates a pipeline. metrics may be nil.
func NewPipeline(logger *slog.Logger, metrics *infrastructure.PipelineMetrics, manifest *RunManifest) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		logger:   logger,
		metrics:  metrics,
		retry:    DefaultRetryConfig(),
		manifest: manifest,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// Register appends a stage to the pipeline.
func (p *Pipeline) Register(stage Stage) {
	p.stages = append(p.stages, stage)
}

// Stages returns the registered stage identities in order.
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Run executes all registered stages against a fresh state. The state
// is returned even on failure so callers can inspect partial results.
func (p *Pipeline) Run(ctx context.Context) (*State, error) {
	state := NewState()

	if p.metrics != nil {
		p.metrics.ActiveRuns.Add(ctx, 1)
		defer p.metrics.ActiveRuns.Add(ctx, -1)
	}

	for _, stage := range p.stages {
		exec, err := p.runStage(ctx, stage, state)
		if p.manifest != nil {
			if mErr := p.manifest.RecordStage(exec); mErr != nil {
				p.logger.Warn("manifest write failed", slog.String("error", mErr.Error()))
			}
		}

		if err != nil {
			if stage.BestEffort() {
				p.logger.Warn("best-effort stage failed, continuing",
					slog.String("stage", stage.ID()),
					slog.String("error", err.Error()))
				continue
			}
			if p.manifest != nil {
				if mErr := p.manifest.Finish(StatusFailed, state.Results()); mErr != nil {
					p.logger.Warn("manifest write failed", slog.String("error", mErr.Error()))
				}
			}
			return state, fmt.Errorf("stage %s failed: %w", stage.ID(), err)
		}
	}

	if p.manifest != nil {
		if err := p.manifest.Finish(StatusCompleted, state.Results()); err != nil {
			p.logger.Warn("manifest write failed", slog.String("error", err.Error()))
		}
	}
	return state, nil
}

// runStage executes one stage with its timeout and the retry policy.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, state *State) (StageExecution, error) {
	exec := StageExecution{
		ID:         stage.ID(),
		Name:       stage.Name(),
		Status:     StatusRunning,
		StartedAt:  time.Now().UTC(),
		BestEffort: stage.BestEffort(),
	}
	p.logger.Info("stage starting", slog.String("stage", stage.ID()))

	var lastErr error
	delay := p.retry.InitialDelay
	attempts := p.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		exec.Attempts = attempt

		stageCtx := ctx
		var cancel context.CancelFunc
		if stage.Timeout() > 0 {
			stageCtx, cancel = context.WithTimeout(ctx, stage.Timeout())
		}
		lastErr = stage.Execute(stageCtx, state)
		if cancel != nil {
			cancel()
		}

		if lastErr == nil || ctx.Err() != nil || attempt == attempts {
			break
		}
		// Retrying on a bad API key or plan limit only burns quota.
		if apperrors.IsHard(lastErr) {
			break
		}

		p.logger.Warn("stage attempt failed, retrying",
			slog.String("stage", stage.ID()),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", lastErr.Error()))
		if err := p.sleep(ctx, delay); err != nil {
			break
		}

		delay = time.Duration(float64(delay) * p.retry.Multiplier)
		if delay > p.retry.MaxDelay {
			delay = p.retry.MaxDelay
		}
	}

	exec.CompletedAt = time.Now().UTC()
	duration := exec.CompletedAt.Sub(exec.StartedAt)
	exec.Duration = duration.Round(time.Millisecond).String()

	if lastErr != nil {
		exec.Status = StatusFailed
		exec.Error = lastErr.Error()
	} else {
		exec.Status = StatusCompleted
	}
	infrastructure.RecordStageMetrics(ctx, p.metrics, stage.ID(), duration, lastErr == nil)

	p.logger.Info("stage finished",
		slog.String("stage", stage.ID()),
		slog.String("status", string(exec.Status)),
		slog.String("duration", exec.Duration))
	return exec, lastErr
}
