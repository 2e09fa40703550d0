// Command macro-runner runs only the country macro batch against the
// World Bank API.
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
)

func main() {
	countries := flag.String("countries", "", "comma-separated country override (default from config)")
	flag.Parse()

	if err := run(*countries); err != nil {
		slog.Error("macro batch failed", "error", err)
		os.Exit(1)
	}
}

func run(countries string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if countries != "" {
		cfg.Macro.Countries = strings.Split(countries, ",")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("macro batch starting", slog.Int("countries", len(cfg.Macro.Countries)))

	store := dataset.NewStore(paths)
	source := fetcher.NewWorldBankClient(cfg.Macro, logger)

	r := runner.NewMacroRunner(source, store, cfg.Macro, logger)
	stats, err := r.Run(ctx)
	if stats != nil {
		logger.Info("macro batch summary",
			slog.Int("countries", stats.Countries),
			slog.Int("ok", stats.OK),
			slog.Int("failed", stats.Failed),
			slog.Int("rows_written", stats.RowsWritten),
			slog.Int("rows_rejected", stats.RowsRejected))
	}
	return err
}
