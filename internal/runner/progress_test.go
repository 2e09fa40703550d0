package runner

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTrackerLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	tracker := NewProgressTracker(path, "tickers", 4)

	require.NoError(t, tracker.Start("KO"))

	snap := tracker.Snapshot()
	assert.Equal(t, "KO", snap.Current)
	assert.Equal(t, 0, snap.Completed)

	require.NoError(t, tracker.Complete())
	require.NoError(t, tracker.Complete())

	snap = tracker.Snapshot()
	assert.Equal(t, 2, snap.Completed)
	assert.InDelta(t, 50.0, snap.PercentDone, 1e-9)
	assert.Empty(t, snap.Current)
}

func TestProgressTrackerPersistsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	tracker := NewProgressTracker(path, "tickers", 2)
	require.NoError(t, tracker.Complete())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var snap ProgressSnapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "tickers", snap.Run)
	assert.Equal(t, 1, snap.Completed)
	assert.Equal(t, 2, snap.Total)
}

func TestProgressTrackerETAFromSlidingWindow(t *testing.T) {
	tracker := NewProgressTracker("", "tickers", 10)

	current := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	// Four completions, one every 15 seconds.
	for i := 0; i < 4; i++ {
		require.NoError(t, tracker.Complete())
		current = current.Add(15 * time.Second)
	}

	snap := tracker.Snapshot()
	require.Greater(t, snap.ItemsPerMin, 0.0)
	assert.Equal(t, 4, snap.Completed)
	// 6 remaining at ~4/min gives an ETA around 90 seconds.
	assert.InDelta(t, 90, snap.ETASeconds, 30)
}

func TestProgressTrackerWindowExpiresOldCompletions(t *testing.T) {
	tracker := NewProgressTracker("", "tickers", 10)

	current := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return current }

	require.NoError(t, tracker.Complete())
	// Ten minutes later, the early completion no longer drives the rate.
	current = current.Add(10 * time.Minute)
	require.NoError(t, tracker.Complete())

	tracker.mu.Lock()
	kept := len(tracker.completions)
	tracker.mu.Unlock()
	assert.Equal(t, 1, kept)
}

func TestProgressTrackerOnUpdate(t *testing.T) {
	tracker := NewProgressTracker("", "tickers", 1)

	var got []ProgressSnapshot
	tracker.OnUpdate(func(s ProgressSnapshot) { got = append(got, s) })

	require.NoError(t, tracker.Start("KO"))
	require.NoError(t, tracker.Complete())

	require.Len(t, got, 2)
	assert.Equal(t, "KO", got[0].Current)
	assert.Equal(t, 1, got[1].Completed)
}

func TestProgressTrackerNoTempFileLeft(t *testing.T) {
	dir := t.TempDir()
	tracker := NewProgressTracker(filepath.Join(dir, "progress.json"), "tickers", 1)
	require.NoError(t, tracker.Complete())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "progress.json", entries[0].Name())
}
