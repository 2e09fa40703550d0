// Command web serves the HTTP surface: run status, progress, feature
// rows, the CSV report and a WebSocket progress feed, plus an endpoint
// that triggers full pipeline runs on demand.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/exporter"
	"divrisk/internal/fetcher"
	"divrisk/internal/infrastructure"
	"divrisk/internal/operations"
	"divrisk/internal/runner"
	transport "divrisk/internal/transport/http"
	"divrisk/internal/universe"
)

func main() {
	if err := run(); err != nil {
		slog.Error("web server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
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

	var server *transport.Server
	runPipeline := func(ctx context.Context, mode string) error {
		runCfg := *cfg
		if mode != "" {
			runCfg.Batch.OverwriteMode = mode
		}

		symbols, err := universe.Load(runCfg.Batch, paths.TickersFile)
		if err != nil {
			return fmt.Errorf("load ticker universe: %w", err)
		}
		progress := runner.NewProgressTracker(paths.ProgressJSON, "tickers", len(symbols))
		progress.OnUpdate(func(snap runner.ProgressSnapshot) {
			server.Hub().Publish(snap)
		})

		deps := operations.Deps{
			Config:       &runCfg,
			Paths:        paths,
			Logger:       logger,
			Store:        store,
			FMP:          fmpClient,
			TickerSource: fetcher.NewTickerFetcher(fmpClient, runCfg.Batch, logger),
			MacroSource:  fetcher.NewWorldBankClient(runCfg.Macro, logger),
			Metrics:      metrics,
			Progress:     progress,
		}

		runID := uuid.New().String()
		manifest := operations.NewRunManifest(runID, paths.ManifestJSON)
		_, err = operations.BuildPipeline(deps, manifest).Run(infrastructure.WithTraceID(ctx, runID))
		return err
	}

	server = transport.NewServer(transport.Options{
		Config:   cfg.Server,
		Paths:    paths,
		Store:    store,
		Exporter: exporter.New(store, logger),
		Logger:   logger,
		Metrics:  metricsProviders.PrometheusHTTP,
		RunFunc:  runPipeline,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx)
}
