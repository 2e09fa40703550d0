package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/internal/config"
	"divrisk/internal/dataset"
	"divrisk/internal/exporter"
	"divrisk/internal/operations"
	"divrisk/internal/runner"
)

func testServer(t *testing.T, runFunc RunFunc) (*Server, *dataset.Store, *config.Paths) {
	t.Helper()
	paths, err := config.ResolvePaths(config.PathsConfig{BaseDir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())
	store := dataset.NewStore(paths)

	s := NewServer(Options{
		Config:   config.ServerConfig{Port: 0, ShutdownTimeout: time.Second},
		Paths:    paths,
		Store:    store,
		Exporter: exporter.New(store, nil),
		RunFunc:  runFunc,
	})
	return s, store, paths
}

func seedRows(t *testing.T, store *dataset.Store) {
	t.Helper()
	pe := float32(23.5)
	require.NoError(t, store.AppendTickerRows("KO", []*dataset.TickerFeatureRow{
		{Ticker: "KO", AsOf: "2024-03-31", PERatio: &pe, ValidationStatus: "ok"},
	}, false))
}

func TestStatusEndpoint(t *testing.T) {
	s, _, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "divrisk", resp.Service)
	assert.False(t, resp.RunActive)
}

func TestProgressEndpoint(t *testing.T) {
	s, _, paths := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "no progress file yet")

	tracker := runner.NewProgressTracker(paths.ProgressJSON, "tickers", 2)
	require.NoError(t, tracker.Complete())

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap runner.ProgressSnapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, 1, snap.Completed)
}

func TestTickerFeaturesEndpoint(t *testing.T) {
	s, store, _ := testServer(t, nil)
	seedRows(t, store)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/features/ko", nil))
	require.Equal(t, http.StatusOK, rec.Code, "ticker is case-insensitive")
	assert.Contains(t, rec.Body.String(), "2024-03-31")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/features/ZZZZ", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/features/%5EGSPC", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "index symbols rejected")
}

func TestListTickersEndpoint(t *testing.T) {
	s, store, _ := testServer(t, nil)
	seedRows(t, store)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/features", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "KO")
}

func TestStartRunConflict(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	runFunc := func(ctx context.Context, mode string) error {
		once.Do(func() { close(started) })
		<-release
		return nil
	}
	s, _, _ := testServer(t, runFunc)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/operations", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	<-started

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/operations", nil))
	assert.Equal(t, http.StatusConflict, rec.Code, "second run rejected while first is in flight")

	close(release)
}

func TestStartRunValidatesMode(t *testing.T) {
	runFunc := func(ctx context.Context, mode string) error { return nil }
	s, _, _ := testServer(t, runFunc)

	body := strings.NewReader(`{"mode":"destroy-everything"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/operations", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRunDisabled(t *testing.T) {
	s, _, _ := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/operations", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestLastRunEndpoint(t *testing.T) {
	s, _, paths := testServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	manifest := operations.NewRunManifest("run-7", paths.ManifestJSON)
	require.NoError(t, manifest.Finish(operations.StatusCompleted, nil))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/operations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "run-7")
}

func TestCSVReportEndpoint(t *testing.T) {
	s, store, _ := testServer(t, nil)
	seedRows(t, store)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report.csv", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "ticker,as_of")
	assert.Contains(t, rec.Body.String(), "KO")
}

func TestWebSocketProgressFeed(t *testing.T) {
	s, _, _ := testServer(t, nil)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	s.Hub().Publish(runner.ProgressSnapshot{Run: "tickers", Completed: 3, Total: 10})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap runner.ProgressSnapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, 3, snap.Completed)
}

func TestWebSocketReplayLastSnapshot(t *testing.T) {
	s, _, _ := testServer(t, nil)
	s.Hub().Publish(runner.ProgressSnapshot{Run: "tickers", Completed: 5, Total: 10})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/progress"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var snap runner.ProgressSnapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, 5, snap.Completed, "new clients get the latest snapshot")
}
