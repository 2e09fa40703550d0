package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	apperrors "divrisk/internal/errors"
	"divrisk/internal/features"
	"divrisk/internal/fetcher"
	"divrisk/internal/infrastructure"
	"divrisk/pkg/contracts/domain"
)

// TickerSource is the per-ticker data dependency of the batch runner.
type TickerSource interface {
	FetchWindow(ctx context.Context, ticker string, earliest, latest time.Time) (*domain.TickerInputs, error)
}

// RunStats summarizes one ticker batch run.
type RunStats struct {
	Total       int `json:"total"`
	OK          int `json:"ok"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
	RowsWritten int `json:"rows_written"`
	RowsFlagged int `json:"rows_flagged"`
}

// TickerRunner drives the per-ticker feature batch: resolve pending
// quarter ends, fetch, engineer, validate, persist, with pacing between
// tickers and a circuit breaker on sustained provider rate limiting.
type TickerRunner struct {
	source   TickerSource
	store    *dataset.Store
	cfg      config.BatchConfig
	logger   *slog.Logger
	progress *ProgressTracker
	metrics  *infrastructure.PipelineMetrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	consecutive429 int
}

// NewTickerRunner assembles a batch runner. progress and metrics may be nil.
func NewTickerRunner(source TickerSource, store *dataset.Store, cfg config.BatchConfig, logger *slog.Logger, progress *ProgressTracker, metrics *infrastructure.PipelineMetrics) *TickerRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &TickerRunner{
		source:   source,
		store:    store,
		cfg:      cfg,
		logger:   logger,
		progress: progress,
		metrics:  metrics,
		now:      func() time.Time { return time.Now().UTC() },
		sleep:    sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Run processes the ticker universe. The run stops early on a hard
// provider error (bad key, plan limit), on the rate-limit circuit
// breaker, or when the global time budget runs out; per-ticker failures
// otherwise just count as failed unless strict mode is on.
func (r *TickerRunner) Run(ctx context.Context, tickers []string) (*RunStats, error) {
	if r.cfg.GlobalBudget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.GlobalBudget)
		defer cancel()
	}

	stats := &RunStats{Total: len(tickers)}
	cutoff := fetcher.LatestQuarterEnd(r.now())

	for i, ticker := range tickers {
		if err := ctx.Err(); err != nil {
			stats.Skipped += len(tickers) - i
			r.logger.Warn("run budget exhausted, skipping remaining tickers",
				slog.Int("remaining", len(tickers)-i))
			break
		}

		if r.progress != nil {
			if err := r.progress.Start(ticker); err != nil {
				r.logger.Warn("progress write failed", slog.String("error", err.Error()))
			}
		}

		err := r.processTicker(ctx, ticker, cutoff, stats)
		if err != nil {
			if abortErr := r.handleFailure(ticker, err, stats); abortErr != nil {
				return stats, abortErr
			}
		} else {
			r.consecutive429 = 0
		}

		if r.progress != nil {
			if err := r.progress.Complete(); err != nil {
				r.logger.Warn("progress write failed", slog.String("error", err.Error()))
			}
		}

		if i < len(tickers)-1 {
			if err := r.sleep(ctx, r.cfg.SleepBetweenCalls); err != nil {
				stats.Skipped += len(tickers) - i - 1
				break
			}
		}
	}

	r.logger.Info("ticker batch finished",
		slog.Int("total", stats.Total),
		slog.Int("ok", stats.OK),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed),
		slog.Int("rows_written", stats.RowsWritten),
		slog.Int("rows_flagged", stats.RowsFlagged))
	return stats, nil
}

// handleFailure classifies a per-ticker error and decides whether the
// whole run aborts.
func (r *TickerRunner) handleFailure(ticker string, err error, stats *RunStats) error {
	stats.Failed++
	r.logger.Error("ticker failed",
		slog.String("ticker", ticker),
		slog.String("error", err.Error()))

	if apperrors.IsHard(err) {
		return fmt.Errorf("aborting run on hard provider error: %w", err)
	}

	if apperrors.IsRateLimit(err) {
		r.consecutive429++
		if r.cfg.MaxConsecutive429 > 0 && r.consecutive429 >= r.cfg.MaxConsecutive429 {
			return fmt.Errorf("aborting run after %d consecutive rate-limited tickers: %w", r.consecutive429, err)
		}
	} else {
		r.consecutive429 = 0
	}

	if r.cfg.Strict {
		return fmt.Errorf("strict mode: %w", err)
	}
	return nil
}

// processTicker builds and persists the pending feature rows of one ticker.
func (r *TickerRunner) processTicker(ctx context.Context, ticker string, cutoff time.Time, stats *RunStats) error {
	pending, err := r.pendingQuarters(ticker, cutoff)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		stats.Skipped++
		r.logger.Debug("ticker up to date", slog.String("ticker", ticker))
		return nil
	}

	earliest, latest := pending[0], pending[len(pending)-1]
	inputs, err := r.source.FetchWindow(ctx, ticker, earliest, latest)
	if err != nil {
		return err
	}

	previous, err := r.lastPersistedRow(ticker)
	if err != nil {
		return err
	}

	var rows []*dataset.TickerFeatureRow
	flagged := 0
	for _, asOf := range pending {
		vector := features.Build(ticker, asOf, inputs, features.BuildOptions{
			DividendLookbackYears: r.cfg.DividendLookback,
		})
		if vector.AllNil() {
			r.logger.Warn("all features missing, dropping row",
				slog.String("ticker", ticker),
				slog.String("as_of", asOf.Format(dataset.DateLayout)))
			continue
		}

		row := dataset.FromVector(vector)
		violations := ValidateRow(row, previous, Denominators{
			EBITDA:       vector.EBITDA,
			FreeCashFlow: vector.FreeCashFlow,
		})
		if len(violations) > 0 {
			flagged++
			if err := r.store.WriteAudit(ticker, row.AsOf, AuditContent(ticker, row.AsOf, violations)); err != nil {
				r.logger.Warn("audit write failed",
					slog.String("ticker", ticker),
					slog.String("error", err.Error()))
			}
		}
		rows = append(rows, row)
		previous = row
	}

	if len(rows) == 0 {
		stats.Skipped++
		return nil
	}

	overwrite := r.cfg.OverwriteMode == "overwrite"
	if err := r.store.AppendTickerRows(ticker, rows, overwrite); err != nil {
		return fmt.Errorf("persist rows for %s: %w", ticker, err)
	}
	if err := r.store.UpsertStaticInfo([]*dataset.StaticTickerRow{
		dataset.FromProfile(inputs.Profile, r.now()),
	}); err != nil {
		return fmt.Errorf("persist static info for %s: %w", ticker, err)
	}

	stats.OK++
	stats.RowsWritten += len(rows)
	stats.RowsFlagged += flagged
	if r.metrics != nil {
		infrastructure.RecordRows(ctx, r.metrics, len(rows), flagged)
	}

	r.logger.Info("ticker persisted",
		slog.String("ticker", ticker),
		slog.Int("rows", len(rows)),
		slog.Int("flagged", flagged))
	return nil
}

// pendingQuarters lists the quarter ends still missing for a ticker
// under the configured overwrite mode.
func (r *TickerRunner) pendingQuarters(ticker string, cutoff time.Time) ([]time.Time, error) {
	all := fetcher.QuarterEnds(r.cfg.StartYear, r.cfg.EndYear, cutoff)

	switch r.cfg.OverwriteMode {
	case "overwrite":
		return all, nil
	case "skip":
		existing, err := r.store.ExistingAsOfDates(ticker)
		if err != nil {
			return nil, err
		}
		if len(existing) > 0 {
			return nil, nil
		}
		return all, nil
	default: // append
		existing, err := r.store.ExistingAsOfDates(ticker)
		if err != nil {
			return nil, err
		}
		var pending []time.Time
		for _, qe := range all {
			if !existing[qe.Format(dataset.DateLayout)] {
				pending = append(pending, qe)
			}
		}
		return pending, nil
	}
}

// lastPersistedRow returns the most recent persisted row of a ticker,
// used as the baseline for relative jump validation.
func (r *TickerRunner) lastPersistedRow(ticker string) (*dataset.TickerFeatureRow, error) {
	rows, err := r.store.ReadTickerRows(ticker)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	last := rows[len(rows)-1]
	return &last, nil
}
