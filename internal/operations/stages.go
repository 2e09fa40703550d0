package operations

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"divrisk/internal/archive"
	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/fetcher"
	"divrisk/internal/gitsnap"
	"divrisk/internal/infrastructure"
	"divrisk/internal/runner"
	"divrisk/internal/universe"
)

// State result keys published by the built-in stages.
const (
	ResultMacroStats  = "macro_stats"
	ResultTickerStats = "ticker_stats"
	ResultArchivePath = "archive_path"
)

// Deps bundles everything the built-in stages need. Optional fields may
// be nil; the stages that need them degrade or skip.
type Deps struct {
	Config       *config.Config
	Paths        *config.Paths
	Logger       *slog.Logger
	Store        *dataset.Store
	FMP          *fetcher.Client
	TickerSource runner.TickerSource
	MacroSource  runner.MacroSource
	Archiver     *archive.Archiver
	Snapshotter  *gitsnap.Snapshotter
	Metrics      *infrastructure.PipelineMetrics
	Progress     *runner.ProgressTracker
}

// BuildPipeline registers the full feature pipeline: bootstrap, macro,
// tickers, then the best-effort archive and git snapshot.
func BuildPipeline(deps Deps, manifest *RunManifest) *Pipeline {
	p := NewPipeline(deps.Logger, deps.Metrics, manifest)
	p.Register(NewBootstrapStage(deps))
	p.Register(NewMacroStage(deps))
	p.Register(NewTickersStage(deps))
	p.Register(NewArchiveStage(deps))
	p.Register(NewSnapshotStage(deps))
	return p
}

// BootstrapStage prepares the on-disk layout and optionally verifies
// the provider credentials before any batch work starts. Running it
// against an existing layout is a no-op.
type BootstrapStage struct {
	BaseStage
	deps Deps
}

func NewBootstrapStage(deps Deps) *BootstrapStage {
	return &BootstrapStage{
		BaseStage: NewBaseStage(StageIDBootstrap, StageNameBootstrap, BootstrapTimeout, false),
		deps:      deps,
	}
}

func (s *BootstrapStage) Execute(ctx context.Context, state *State) error {
	if err := s.deps.Paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("bootstrap layout: %w", err)
	}

	if s.deps.Config.FMP.Preflight && s.deps.FMP != nil {
		if err := s.deps.FMP.Preflight(ctx); err != nil {
			return err
		}
	}
	return nil
}

// MacroStage runs the country macro batch.
type MacroStage struct {
	BaseStage
	deps Deps
}

func NewMacroStage(deps Deps) *MacroStage {
	return &MacroStage{
		BaseStage: NewBaseStage(StageIDMacro, StageNameMacro, MacroTimeout, false),
		deps:      deps,
	}
}

func (s *MacroStage) Execute(ctx context.Context, state *State) error {
	r := runner.NewMacroRunner(s.deps.MacroSource, s.deps.Store, s.deps.Config.Macro, s.deps.Logger)
	stats, err := r.Run(ctx)
	if stats != nil {
		state.Set(ResultMacroStats, stats)
	}
	return err
}

// TickersStage runs the per-ticker feature batch over the configured
// universe.
type TickersStage struct {
	BaseStage
	deps Deps
}

func NewTickersStage(deps Deps) *TickersStage {
	return &TickersStage{
		BaseStage: NewBaseStage(StageIDTickers, StageNameTickers, TickersTimeout, false),
		deps:      deps,
	}
}

func (s *TickersStage) Execute(ctx context.Context, state *State) error {
	tickers, err := universe.Load(s.deps.Config.Batch, s.deps.Paths.TickersFile)
	if err != nil {
		return err
	}

	progress := s.deps.Progress
	if progress == nil {
		progress = runner.NewProgressTracker(s.deps.Paths.ProgressJSON, "tickers", len(tickers))
	}

	r := runner.NewTickerRunner(s.deps.TickerSource, s.deps.Store, s.deps.Config.Batch,
		s.deps.Logger, progress, s.deps.Metrics)
	stats, err := r.Run(ctx, tickers)
	if stats != nil {
		state.Set(ResultTickerStats, stats)
	}
	return err
}

// ArchiveStage tars the features_data subdirectories. Best effort: a
// failed archive never fails the run.
type ArchiveStage struct {
	BaseStage
	deps Deps
	now  func() time.Time
}

func NewArchiveStage(deps Deps) *ArchiveStage {
	return &ArchiveStage{
		BaseStage: NewBaseStage(StageIDArchive, StageNameArchive, ArchiveTimeout, true),
		deps:      deps,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *ArchiveStage) Execute(ctx context.Context, state *State) error {
	archiver := s.deps.Archiver
	if archiver == nil {
		archiver = archive.New(s.deps.Logger)
	}
	path, err := archiver.Create(s.deps.Paths.BaseDir, s.deps.Paths.ArchiveSourceDirs(), s.now())
	if err != nil {
		return err
	}
	state.Set(ResultArchivePath, path)
	return nil
}

// SnapshotStage commits and pushes the data directory. Best effort.
type SnapshotStage struct {
	BaseStage
	deps Deps
	now  func() time.Time
}

func NewSnapshotStage(deps Deps) *SnapshotStage {
	return &SnapshotStage{
		BaseStage: NewBaseStage(StageIDSnapshot, StageNameSnapshot, SnapshotTimeout, true),
		deps:      deps,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *SnapshotStage) Execute(ctx context.Context, state *State) error {
	snapshotter := s.deps.Snapshotter
	if snapshotter == nil {
		snapshotter = gitsnap.New(s.deps.Config.Git, s.deps.Paths.BaseDir, s.deps.Logger)
	}
	message := fmt.Sprintf("features update %s", s.now().Format("2006-01-02 15:04 MST"))
	return snapshotter.Snapshot(ctx, s.deps.Paths.DataDir, message)
}
