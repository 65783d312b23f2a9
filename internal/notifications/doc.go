// Package notifications delivers operator alerts via ntfy.
//
// Alerts cover migration runs: a summary when a job finishes (raised to high
// priority when records failed) and an error when a job aborts. When no topic
// is configured NewService returns a no-op implementation, so callers never
// need to check whether alerts are enabled.
package notifications
