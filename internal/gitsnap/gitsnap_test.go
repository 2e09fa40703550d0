package gitsnap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/internal/config"
)

type gitCall struct {
	args []string
}

func fakeGit(calls *[]gitCall, results map[string]struct {
	out string
	err error
}) func(ctx context.Context, dir string, args ...string) (string, error) {
	return func(ctx context.Context, dir string, args ...string) (string, error) {
		*calls = append(*calls, gitCall{args: args})
		for key, res := range results {
			for _, a := range args {
				if a == key {
					return res.out, res.err
				}
			}
		}
		return "", nil
	}
}

func enabledCfg() config.GitConfig {
	return config.GitConfig{
		Enabled:    true,
		Remote:     "origin",
		Branch:     "main",
		AuthorName: "divrisk-bot",
		AuthorMail: "divrisk-bot@localhost",
	}
}

func TestSnapshotDisabled(t *testing.T) {
	var calls []gitCall
	s := New(config.GitConfig{Enabled: false}, "/repo", nil)
	s.runGit = fakeGit(&calls, nil)

	require.NoError(t, s.Snapshot(context.Background(), "features_data", "update features"))
	assert.Empty(t, calls, "no git invoked when disabled")
}

func TestSnapshotAddCommitPush(t *testing.T) {
	var calls []gitCall
	s := New(enabledCfg(), "/repo", nil)
	s.runGit = fakeGit(&calls, nil)

	require.NoError(t, s.Snapshot(context.Background(), "features_data", "update features"))
	require.Len(t, calls, 3)
	assert.Equal(t, "add", calls[0].args[0])
	assert.Contains(t, calls[1].args, "commit")
	assert.Contains(t, calls[1].args, "user.name=divrisk-bot")
	assert.Equal(t, []string{"push", "origin", "main"}, calls[2].args)
}

func TestSnapshotNothingToCommitIsSuccess(t *testing.T) {
	var calls []gitCall
	s := New(enabledCfg(), "/repo", nil)
	s.runGit = fakeGit(&calls, map[string]struct {
		out string
		err error
	}{
		"commit": {out: "On branch main\nnothing to commit, working tree clean\n", err: errors.New("exit status 1")},
	})

	require.NoError(t, s.Snapshot(context.Background(), "features_data", "update features"))
	require.Len(t, calls, 2, "push is skipped when there is no commit")
}

func TestSnapshotUpToDatePushIsSuccess(t *testing.T) {
	var calls []gitCall
	s := New(enabledCfg(), "/repo", nil)
	s.runGit = fakeGit(&calls, map[string]struct {
		out string
		err error
	}{
		"push": {out: "Everything up-to-date\n", err: errors.New("exit status 1")},
	})

	require.NoError(t, s.Snapshot(context.Background(), "features_data", "update features"))
}

func TestSnapshotRealFailureSurfaces(t *testing.T) {
	var calls []gitCall
	s := New(enabledCfg(), "/repo", nil)
	s.runGit = fakeGit(&calls, map[string]struct {
		out string
		err error
	}{
		"push": {out: "fatal: could not read from remote repository\n", err: errors.New("exit status 128")},
	})

	err := s.Snapshot(context.Background(), "features_data", "update features")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "git push failed")
}
