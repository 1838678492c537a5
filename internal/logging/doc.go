// Package logging assembles structured slog loggers and formatting helpers used
// across the DriveTime worker and CLI.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so the worker loop can tag log lines with
// batch IDs, request IDs, and worker state. The package also provides a no-op
// logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits records with the same keys.
package logging
