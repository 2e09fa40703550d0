package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/features"
	"divrisk/pkg/contracts/domain"
)

// MacroSource is the per-country data dependency of the macro runner.
type MacroSource interface {
	CountrySeries(ctx context.Context, country string, startYear, endYear int) (*domain.MacroSeries, error)
}

// MacroStats summarizes one macro batch run.
type MacroStats struct {
	Countries    int `json:"countries"`
	OK           int `json:"ok"`
	Failed       int `json:"failed"`
	RowsWritten  int `json:"rows_written"`
	RowsRejected int `json:"rows_rejected"`
}

// MacroRunner fetches country macro indicators, engineers the yearly
// features, and writes one parquet file per country. Rows with NaN
// features are rejected to _invalid rather than merged.
type MacroRunner struct {
	source MacroSource
	store  *dataset.Store
	cfg    config.MacroConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewMacroRunner assembles a macro batch runner.
func NewMacroRunner(source MacroSource, store *dataset.Store, cfg config.MacroConfig, logger *slog.Logger) *MacroRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &MacroRunner{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run processes every configured country. A country failure does not
// stop the batch; the error reports all failed countries at the end.
func (r *MacroRunner) Run(ctx context.Context) (*MacroStats, error) {
	stats := &MacroStats{Countries: len(r.cfg.Countries)}
	endYear := r.now().Year()

	var failures []string
	for _, country := range r.cfg.Countries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if err := r.processCountry(ctx, country, endYear, stats); err != nil {
			stats.Failed++
			failures = append(failures, fmt.Sprintf("%s: %v", country, err))
			r.logger.Error("macro country failed",
				slog.String("country", country),
				slog.String("error", err.Error()))
			continue
		}
		stats.OK++
	}

	r.logger.Info("macro batch finished",
		slog.Int("countries", stats.Countries),
		slog.Int("ok", stats.OK),
		slog.Int("failed", stats.Failed),
		slog.Int("rows_written", stats.RowsWritten),
		slog.Int("rows_rejected", stats.RowsRejected))

	if len(failures) > 0 {
		return stats, fmt.Errorf("macro batch had failures: %s", strings.Join(failures, "; "))
	}
	return stats, nil
}

func (r *MacroRunner) processCountry(ctx context.Context, country string, endYear int, stats *MacroStats) error {
	series, err := r.source.CountrySeries(ctx, country, r.cfg.StartYear, endYear)
	if err != nil {
		return err
	}

	// Feature rows start one year after the indicator window so the
	// first YoY has a base year.
	vectors := features.BuildMacro(series, r.cfg.StartYear+1, endYear)

	slug := dataset.CountrySlug(country)
	var rows []*dataset.MacroFeatureRow
	var rejected []string
	for i := range vectors {
		v := &vectors[i]
		if v.HasNaN() {
			rejected = append(rejected, fmt.Sprintf("%d", v.Year))
			continue
		}
		rows = append(rows, dataset.FromMacroVector(v))
	}

	if len(rejected) > 0 {
		stats.RowsRejected += len(rejected)
		desc := fmt.Sprintf("country: %s\nrejected years (NaN features): %s\n", country, strings.Join(rejected, ", "))
		if err := r.store.WriteInvalidMacro(slug, desc); err != nil {
			r.logger.Warn("invalid record write failed",
				slog.String("country", country),
				slog.String("error", err.Error()))
		}
	}

	if len(rows) == 0 {
		return fmt.Errorf("no valid macro rows for %s", country)
	}

	if err := r.store.WriteMacro(slug, rows); err != nil {
		return fmt.Errorf("persist macro rows: %w", err)
	}
	stats.RowsWritten += len(rows)

	r.logger.Info("macro country persisted",
		slog.String("country", country),
		slog.Int("rows", len(rows)),
		slog.Int("rejected", len(rejected)))
	return nil
}
