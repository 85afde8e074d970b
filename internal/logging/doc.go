// Package logging assembles structured slog loggers and formatting helpers used
// across dualsubs.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so merge code can tag log lines
// with request IDs, batch job names and pair labels. The package also provides
// a no-op logger for tests and wiring code that cannot fail.
package logging
