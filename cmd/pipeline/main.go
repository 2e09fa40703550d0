// Command pipeline runs the full feature pipeline once: bootstrap,
// macro batch, ticker batch, archive and git snapshot. Intended for
// cron or manual runs; use cmd/web for the HTTP-triggered variant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/exporter"
	"divrisk/internal/fetcher"
	"divrisk/internal/infrastructure"
	"divrisk/internal/operations"
)

type options struct {
	mode      string
	tickers   string
	countries string
	startYear int
	endYear   int
	strict    bool
	archive   bool
	snapshot  bool
	xlsxOut   string
}

func main() {
	var opts options
	flag.StringVar(&opts.mode, "mode", "", "overwrite mode for this run: append, overwrite or skip (default from config)")
	flag.StringVar(&opts.tickers, "tickers", "", "comma-separated ticker override (default from config or tickers file)")
	flag.StringVar(&opts.countries, "countries", "", "comma-separated macro country override (default from config)")
	flag.IntVar(&opts.startYear, "start-year", 0, "first batch year override")
	flag.IntVar(&opts.endYear, "end-year", 0, "last batch year override")
	flag.BoolVar(&opts.strict, "strict", false, "abort the run on any per-ticker failure")
	flag.BoolVar(&opts.archive, "archive", true, "archive the feature directories after the batches")
	flag.BoolVar(&opts.snapshot, "snapshot", true, "git-commit the data directory after the batches")
	flag.StringVar(&opts.xlsxOut, "xlsx", "", "write an Excel feature report to this path after a successful run")
	flag.Parse()

	if err := run(opts); err != nil {
		slog.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyOverrides(cfg, opts); err != nil {
		return err
	}

	paths, err := config.ResolvePaths(cfg.Paths)
	if err != nil {
		return fmt.Errorf("resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("prepare directories: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	metricsProviders, err := infrastructure.InitializeMetrics(logger)
	if err != nil {
		return fmt.Errorf("initialize metrics: %w", err)
	}
	defer metricsProviders.Shutdown(context.Background())

	metrics, err := infrastructure.CreatePipelineMetrics(metricsProviders.Meter)
	if err != nil {
		return fmt.Errorf("create pipeline metrics: %w", err)
	}

	fmpClient, err := fetcher.NewClient(cfg.FMP, logger)
	if err != nil {
		return fmt.Errorf("create FMP client: %w", err)
	}

	store := dataset.NewStore(paths)
	deps := operations.Deps{
		Config:       cfg,
		Paths:        paths,
		Logger:       logger,
		Store:        store,
		FMP:          fmpClient,
		TickerSource: fetcher.NewTickerFetcher(fmpClient, cfg.Batch, logger),
		MacroSource:  fetcher.NewWorldBankClient(cfg.Macro, logger),
		Metrics:      metrics,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.New().String()
	ctx = infrastructure.WithTraceID(ctx, runID)
	manifest := operations.NewRunManifest(runID, paths.ManifestJSON)
	logger.Info("pipeline run starting",
		slog.String("run_id", runID),
		slog.String("overwrite_mode", cfg.Batch.OverwriteMode))

	pipeline := operations.NewPipeline(logger, metrics, manifest)
	pipeline.Register(operations.NewBootstrapStage(deps))
	pipeline.Register(operations.NewMacroStage(deps))
	pipeline.Register(operations.NewTickersStage(deps))
	if opts.archive {
		pipeline.Register(operations.NewArchiveStage(deps))
	}
	if opts.snapshot {
		pipeline.Register(operations.NewSnapshotStage(deps))
	}

	state, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	if stats, ok := state.Get(operations.ResultTickerStats); ok {
		logger.Info("ticker batch summary", slog.Any("stats", stats))
	}
	if stats, ok := state.Get(operations.ResultMacroStats); ok {
		logger.Info("macro batch summary", slog.Any("stats", stats))
	}
	if path, ok := state.Get(operations.ResultArchivePath); ok {
		logger.Info("archive written", slog.Any("path", path))
	}

	if opts.xlsxOut != "" {
		if err := exporter.New(store, logger).WriteExcel(opts.xlsxOut); err != nil {
			return fmt.Errorf("write excel report: %w", err)
		}
		logger.Info("excel report written", slog.String("path", opts.xlsxOut))
	}

	logger.Info("pipeline run complete", slog.String("run_id", runID))
	return nil
}

func applyOverrides(cfg *config.Config, opts options) error {
	if opts.mode != "" {
		if !config.OverwriteModes[opts.mode] {
			return fmt.Errorf("invalid -mode %q (must be append, overwrite or skip)", opts.mode)
		}
		cfg.Batch.OverwriteMode = opts.mode
	}
	if opts.tickers != "" {
		cfg.Batch.Tickers = strings.Split(opts.tickers, ",")
	}
	if opts.countries != "" {
		cfg.Macro.Countries = strings.Split(opts.countries, ",")
	}
	if opts.startYear != 0 {
		cfg.Batch.StartYear = opts.startYear
	}
	if opts.endYear != 0 {
		cfg.Batch.EndYear = opts.endYear
	}
	if opts.strict {
		cfg.Batch.Strict = true
	}
	if opts.endYear != 0 && opts.endYear < cfg.Batch.StartYear {
		return fmt.Errorf("-end-year %d is before start year %d", opts.endYear, cfg.Batch.StartYear)
	}
	return nil
}
