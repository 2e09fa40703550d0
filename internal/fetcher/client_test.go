package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"divrisk/internal/config"
	apperrors "divrisk/internal/errors"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(config.FMPConfig{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		RPS:        1000,
		Burst:      1000,
	}, nil)
	require.NoError(t, err)
	return client, srv
}

func TestClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(config.FMPConfig{}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
}

func TestClientSendsAPIKey(t *testing.T) {
	var gotKey string
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("apikey")
		w.Write([]byte(`[]`))
	})

	var out []ratioPayload
	require.NoError(t, client.get(context.Background(), "ratios/KO", nil, &out))
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, 1, client.RequestCount())
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`[{"date":"2024-12-31"}]`))
	})

	var out []ratioPayload
	err := client.get(context.Background(), "ratios/KO", nil, &out)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	require.Len(t, out, 1)
}

func TestClientDoesNotRetryAuthErrors(t *testing.T) {
	var calls int
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})

	var out []ratioPayload
	err := client.get(context.Background(), "ratios/KO", nil, &out)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.Equal(t, 1, calls)
}

func TestClientSurfacesRateLimitAfterRetries(t *testing.T) {
	var calls int
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	var out []ratioPayload
	err := client.get(context.Background(), "ratios/KO", nil, &out)
	require.Error(t, err)
	assert.True(t, apperrors.IsRateLimit(err))
	assert.Equal(t, 3, calls)
}

func TestClientPlanErrorOnForbidden(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	var out []ratioPayload
	err := client.get(context.Background(), "ratios/KO", nil, &out)
	require.Error(t, err)
	assert.True(t, apperrors.IsPlan(err))
}

func TestPreflight(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "ratios/AAPL")
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Write([]byte(`[{"date":"2024-12-31","priceEarningsRatio":25.0}]`))
	})

	require.NoError(t, client.Preflight(context.Background()))
}

func TestResetRequestCount(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	var out []ratioPayload
	require.NoError(t, client.get(context.Background(), "ratios/KO", nil, &out))
	require.NoError(t, client.get(context.Background(), "ratios/PG", nil, &out))
	assert.Equal(t, 2, client.RequestCount())

	client.ResetRequestCount()
	assert.Equal(t, 0, client.RequestCount())
}
