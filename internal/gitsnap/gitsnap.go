// Package gitsnap commits and pushes the features_data directory as a
// git snapshot at the end of a pipeline run. Snapshots are best effort:
// "nothing to commit" and "everything up-to-date" are success, and any
// git failure degrades to a logged warning at the pipeline level.
package gitsnap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"divrisk/internal/config"
)

// Snapshotter runs git against a repository working directory.
type Snapshotter struct {
	cfg     config.GitConfig
	workDir string
	logger  *slog.Logger

	// runGit is swapped in tests.
	runGit func(ctx context.Context, dir string, args ...string) (string, error)
}

// New creates a snapshotter for the repository at workDir.
func New(cfg config.GitConfig, workDir string, logger *slog.Logger) *Snapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Snapshotter{
		cfg:     cfg,
		workDir: workDir,
		logger:  logger,
		runGit:  execGit,
	}
}

func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	return out.String(), err
}

// Snapshot stages the data directory, commits with the configured
// author and pushes to the configured remote. Empty commits and
// up-to-date pushes are treated as success.
func (s *Snapshotter) Snapshot(ctx context.Context, dataDir, message string) error {
	if !s.cfg.Enabled {
		s.logger.Debug("git snapshot disabled")
		return nil
	}

	if out, err := s.runGit(ctx, s.workDir, "add", "-A", dataDir); err != nil {
		return fmt.Errorf("git add failed: %s: %w", strings.TrimSpace(out), err)
	}

	commitArgs := []string{
		"-c", "user.name=" + s.cfg.AuthorName,
		"-c", "user.email=" + s.cfg.AuthorMail,
		"commit", "-m", message,
	}
	out, err := s.runGit(ctx, s.workDir, commitArgs...)
	if err != nil {
		if isNothingToCommit(out) {
			s.logger.Info("git snapshot: nothing to commit")
			return nil
		}
		return fmt.Errorf("git commit failed: %s: %w", strings.TrimSpace(out), err)
	}
	s.logger.Info("git snapshot committed", slog.String("branch", s.cfg.Branch))

	out, err = s.runGit(ctx, s.workDir, "push", s.cfg.Remote, s.cfg.Branch)
	if err != nil {
		if isUpToDate(out) {
			return nil
		}
		return fmt.Errorf("git push failed: %s: %w", strings.TrimSpace(out), err)
	}
	s.logger.Info("git snapshot pushed",
		slog.String("remote", s.cfg.Remote),
		slog.String("branch", s.cfg.Branch))
	return nil
}

func isNothingToCommit(out string) bool {
	lower := strings.ToLower(out)
	return strings.Contains(lower, "nothing to commit") ||
		strings.Contains(lower, "nothing added to commit")
}

func isUpToDate(out string) bool {
	return strings.Contains(strings.ToLower(out), "everything up-to-date")
}
