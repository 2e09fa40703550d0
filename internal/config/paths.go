package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// This is the single source of truth for the features_data layout.
type Paths struct {
	BaseDir string
	DataDir string
	LogsDir string

	// features_data subdirectories
	TickersHistoryDir string
	TickersStaticDir  string
	MacroHistoryDir   string
	InvalidDir        string
	AuditDir          string
	StatusDir         string

	// Well-known files
	StaticInfoParquet string
	ProgressJSON      string
	ManifestJSON      string
	TickersFile       string
}

// ResolvePaths builds the path layout from configuration. Relative paths
// resolve against BaseDir; an empty BaseDir means the working directory.
//
// Layout:
//
//	features_data/
//	  ├── tickers_history/   (per-ticker dynamic feature parquet)
//	  ├── tickers_static/    (static_ticker_info.parquet)
//	  ├── macro_history/     (per-country macro feature parquet)
//	  ├── _invalid/          (rejected macro/ticker rows)
//	  ├── _audit/            (violation audit files for flagged rows)
//	  └── status/            (progress.json, manifest.json)
//	logs/
func ResolvePaths(cfg PathsConfig) (*Paths, error) {
	base := cfg.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve working directory: %w", err)
		}
		base = wd
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "features_data"
	}
	if !filepath.IsAbs(dataDir) {
		dataDir = filepath.Join(base, dataDir)
	}

	logsDir := cfg.LogsDir
	if logsDir == "" {
		logsDir = "logs"
	}
	if !filepath.IsAbs(logsDir) {
		logsDir = filepath.Join(base, logsDir)
	}

	tickersFile := cfg.TickersFile
	if tickersFile != "" && !filepath.IsAbs(tickersFile) {
		tickersFile = filepath.Join(base, tickersFile)
	}

	statusDir := filepath.Join(dataDir, "status")

	return &Paths{
		BaseDir:           base,
		DataDir:           dataDir,
		LogsDir:           logsDir,
		TickersHistoryDir: filepath.Join(dataDir, "tickers_history"),
		TickersStaticDir:  filepath.Join(dataDir, "tickers_static"),
		MacroHistoryDir:   filepath.Join(dataDir, "macro_history"),
		InvalidDir:        filepath.Join(dataDir, "_invalid"),
		AuditDir:          filepath.Join(dataDir, "_audit"),
		StatusDir:         statusDir,
		StaticInfoParquet: filepath.Join(dataDir, "tickers_static", "static_ticker_info.parquet"),
		ProgressJSON:      filepath.Join(statusDir, "progress.json"),
		ManifestJSON:      filepath.Join(statusDir, "manifest.json"),
		TickersFile:       tickersFile,
	}, nil
}

// EnsureDirectories creates all required directories if they don't exist.
// Safe to call repeatedly; the bootstrap stage relies on that.
func (p *Paths) EnsureDirectories() error {
	directories := []string{
		p.DataDir,
		p.TickersHistoryDir,
		p.TickersStaticDir,
		p.MacroHistoryDir,
		p.InvalidDir,
		p.AuditDir,
		p.StatusDir,
		p.LogsDir,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// TickerParquetPath returns the dynamic feature file for a ticker.
func (p *Paths) TickerParquetPath(ticker string) string {
	return filepath.Join(p.TickersHistoryDir, ticker+".parquet")
}

// MacroParquetPath returns the macro feature file for a country slug.
func (p *Paths) MacroParquetPath(countrySlug string) string {
	return filepath.Join(p.MacroHistoryDir, countrySlug+".parquet")
}

// LogPath returns the path of a log file inside the logs directory.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}

// ArchiveSourceDirs lists the directories included in a features archive,
// in a stable order. Missing entries are skipped by the archiver.
func (p *Paths) ArchiveSourceDirs() []string {
	return []string{
		p.MacroHistoryDir,
		p.TickersHistoryDir,
		p.TickersStaticDir,
		p.InvalidDir,
	}
}
