// Command ticker-runner runs only the per-ticker feature batch. Useful
// for re-running a handful of tickers without touching the macro data
// or producing archives.
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

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/fetcher"
	"divrisk/internal/infrastructure"
	"divrisk/internal/runner"
	"divrisk/internal/universe"
)

func main() {
	mode := flag.String("mode", "", "overwrite mode for this run: append, overwrite or skip (default from config)")
	tickers := flag.String("tickers", "", "comma-separated ticker override (default from config or tickers file)")
	flag.Parse()

	if err := run(*mode, *tickers); err != nil {
		slog.Error("ticker batch failed", "error", err)
		os.Exit(1)
	}
}

func run(mode, tickers string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if mode != "" {
		if !config.OverwriteModes[mode] {
			return fmt.Errorf("invalid -mode %q (must be append, overwrite or skip)", mode)
		}
		cfg.Batch.OverwriteMode = mode
	}
	if tickers != "" {
		cfg.Batch.Tickers = strings.Split(tickers, ",")
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

	fmpClient, err := fetcher.NewClient(cfg.FMP, logger)
	if err != nil {
		return fmt.Errorf("create FMP client: %w", err)
	}

	symbols, err := universe.Load(cfg.Batch, paths.TickersFile)
	if err != nil {
		return fmt.Errorf("load ticker universe: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("ticker batch starting",
		slog.Int("tickers", len(symbols)),
		slog.String("overwrite_mode", cfg.Batch.OverwriteMode))

	store := dataset.NewStore(paths)
	source := fetcher.NewTickerFetcher(fmpClient, cfg.Batch, logger)
	progress := runner.NewProgressTracker(paths.ProgressJSON, "tickers", len(symbols))

	r := runner.NewTickerRunner(source, store, cfg.Batch, logger, progress, nil)
	stats, err := r.Run(ctx, symbols)
	if stats != nil {
		logger.Info("ticker batch summary",
			slog.Int("total", stats.Total),
			slog.Int("ok", stats.OK),
			slog.Int("skipped", stats.Skipped),
			slog.Int("failed", stats.Failed),
			slog.Int("rows_written", stats.RowsWritten),
			slog.Int("rows_flagged", stats.RowsFlagged))
	}
	return err
}
