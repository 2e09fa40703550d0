// Package fetcher implements the HTTP clients for the external data
// sources: the Financial Modeling Prep API for per-ticker prices,
// dividends and fundamentals, and the World Bank open data API for
// country-level macro indicators.
//
// The FMP client owns transport concerns only: rate limiting, retry
// with exponential backoff on transient failures, and classification
// of provider responses into typed errors. Batch-level decisions such
// as circuit breaking on sustained rate limiting belong to the runner.
package fetcher
