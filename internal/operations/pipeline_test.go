package operations

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "divrisk/internal/errors"
)

type scriptedStage struct {
	BaseStage
	results []error
	calls   int
	onRun   func(state *State)
}

func newScriptedStage(id string, bestEffort bool, results ...error) *scriptedStage {
	return &scriptedStage{
		BaseStage: NewBaseStage(id, id, time.Minute, bestEffort),
		results:   results,
	}
}

func (s *scriptedStage) Execute(ctx context.Context, state *State) error {
	if s.onRun != nil {
		s.onRun(state)
	}
	idx := s.calls
	s.calls++
	if idx >= len(s.results) {
		return nil
	}
	return s.results[idx]
}

func testPipeline(stages ...Stage) *Pipeline {
	p := NewPipeline(nil, nil, nil)
	p.retry.InitialDelay = time.Millisecond
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	for _, s := range stages {
		p.Register(s)
	}
	return p
}

func TestPipelineRunsStagesInOrder(t *testing.T) {
	var order []string
	first := newScriptedStage("first", false)
	first.onRun = func(*State) { order = append(order, "first") }
	second := newScriptedStage("second", false)
	second.onRun = func(*State) { order = append(order, "second") }

	_, err := testPipeline(first, second).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPipelineFailFastOnCoreStage(t *testing.T) {
	failing := newScriptedStage("core", false, errors.New("boom"), errors.New("boom"), errors.New("boom"))
	never := newScriptedStage("after", false)

	_, err := testPipeline(failing, never).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stage core failed")
	assert.Equal(t, 0, never.calls)
}

func TestPipelineRetriesTransientFailures(t *testing.T) {
	flaky := newScriptedStage("flaky", false, errors.New("transient"), nil)

	_, err := testPipeline(flaky).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, flaky.calls)
}

func TestPipelineDoesNotRetryHardErrors(t *testing.T) {
	hard := apperrors.NewFetchError(apperrors.KindAuth, 401, "/profile", "bad key")
	failing := newScriptedStage("auth", false, hard, nil)

	_, err := testPipeline(failing).Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, failing.calls)
}

func TestPipelineBestEffortStageContinues(t *testing.T) {
	always := errors.New("tar failed")
	archiveStage := newScriptedStage("archive", true, always, always, always)
	after := newScriptedStage("snapshot", true)

	_, err := testPipeline(archiveStage, after).Run(context.Background())
	require.NoError(t, err, "best-effort failure does not fail the run")
	assert.Equal(t, 1, after.calls)
}

func TestPipelineWritesManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	manifest := NewRunManifest("run-1", path)

	p := NewPipeline(nil, nil, manifest)
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	ok := newScriptedStage("ok", false)
	ok.onRun = func(state *State) { state.Set("rows", 42) }
	bad := newScriptedStage("bad", true, errors.New("nope"), errors.New("nope"), errors.New("nope"))
	p.Register(ok)
	p.Register(bad)

	_, err := p.Run(context.Background())
	require.NoError(t, err)

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.Equal(t, StatusCompleted, loaded.Status)
	require.Len(t, loaded.Stages, 2)
	assert.Equal(t, StatusCompleted, loaded.Stages[0].Status)
	assert.Equal(t, StatusFailed, loaded.Stages[1].Status)
	assert.Equal(t, "nope", loaded.Stages[1].Error)
	assert.EqualValues(t, 42, loaded.Results["rows"])
}

func TestPipelineFailedRunManifestStatus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	manifest := NewRunManifest("run-2", path)

	p := NewPipeline(nil, nil, manifest)
	p.retry.MaxAttempts = 1
	p.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	p.Register(newScriptedStage("core", false, errors.New("boom")))

	_, err := p.Run(context.Background())
	require.Error(t, err)

	loaded, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, loaded.Status)
}

func TestStateResults(t *testing.T) {
	state := NewState()
	state.Set("a", 1)

	v, ok := state.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	results := state.Results()
	results["a"] = 2
	v, _ = state.Get("a")
	assert.Equal(t, 1, v, "Results returns a copy")
}
