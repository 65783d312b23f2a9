// Package logging assembles structured slog loggers and formatting helpers used
// across the site server, the API clients and the migration jobs.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so handlers automatically tag log lines
// with request IDs, route patterns and migration run IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
