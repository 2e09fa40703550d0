package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"divrisk/internal/config"
	apperrors "divrisk/internal/errors"
)

// Client is the Financial Modeling Prep API client. It applies a shared
// rate limiter and retries 429/5xx responses with exponential backoff.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	logger     *slog.Logger

	// requestCount tracks requests made since the last Reset, for the
	// per-ticker request accounting in the batch runner logs.
	requestCount int
}

// NewClient creates an FMP client from configuration.
func NewClient(cfg config.FMPConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, apperrors.NewFetchError(apperrors.KindAuth, 0, cfg.BaseURL, "FMP API key not set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = 4
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}, nil
}

// RequestCount returns the number of requests issued since the last reset.
func (c *Client) RequestCount() int { return c.requestCount }

// ResetRequestCount zeroes the per-ticker request counter.
func (c *Client) ResetRequestCount() { c.requestCount = 0 }

// get performs a GET against the FMP API and decodes the JSON body into v.
// Retries are attempted for 429 and 5xx responses; 401/402/403 map to
// typed errors and are returned immediately.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, v interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("apikey", c.apiKey)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	tries := c.maxRetries
	if tries < 1 {
		tries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= tries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter wait: %w", err)
		}

		body, err := c.do(ctx, endpoint, reqURL)
		c.requestCount++
		if err == nil {
			if decodeErr := json.Unmarshal(body, v); decodeErr != nil {
				return fmt.Errorf("decode %s response: %w", endpoint, decodeErr)
			}
			return nil
		}

		lastErr = err
		if !retryAfterAttempt(err, attempt, tries) {
			return err
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
		c.logger.Warn("retrying FMP request",
			slog.String("endpoint", endpoint),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

// retryAfterAttempt decides whether the client loop retries an error.
// 429 and 5xx retry until the attempt budget is exhausted; everything
// else surfaces immediately.
func retryAfterAttempt(err error, attempt, tries int) bool {
	if attempt >= tries {
		return false
	}
	return apperrors.IsRateLimit(err) || apperrors.IsRetryable(err)
}

func (c *Client) do(ctx context.Context, endpoint, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", "divrisk/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", endpoint, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, apperrors.NewFetchError(apperrors.KindAuth, resp.StatusCode, endpoint, "invalid or missing API key")
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.NewFetchError(apperrors.KindPlan, resp.StatusCode, endpoint, "plan does not cover endpoint")
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, apperrors.NewFetchError(apperrors.KindRateLimit, resp.StatusCode, endpoint, "too many requests")
	case resp.StatusCode >= 500:
		return nil, apperrors.NewFetchError(apperrors.KindServer, resp.StatusCode, endpoint, "server error")
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("request %s: unexpected status %d", endpoint, resp.StatusCode)
	}

	return body, nil
}

// Preflight verifies API credentials with a minimal request.
func (c *Client) Preflight(ctx context.Context) error {
	var out []ratioPayload
	params := url.Values{}
	params.Set("limit", "1")
	if err := c.get(ctx, "ratios/AAPL", params, &out); err != nil {
		return fmt.Errorf("FMP preflight failed: %w", err)
	}
	return nil
}
