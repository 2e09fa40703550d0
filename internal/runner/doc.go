// Package runner drives the batch flows: the per-ticker feature runner
// with pacing, idempotent skip of persisted quarters, soft validation
// with audit files, a circuit breaker on sustained rate limiting and a
// global time budget; the per-country macro runner; and the shared
// progress tracking behind progress.json.
package runner
