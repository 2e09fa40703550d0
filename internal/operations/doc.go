// Package operations is the staged pipeline engine: stages execute in
// order with per-stage timeouts and retry, core stages fail the run,
// best-effort stages (archive, git snapshot) only log. Every run writes
// a manifest to status/manifest.json recording stage outcomes.
package operations
