package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Run describes one job invocation.
type Run struct {
	ID         string
	Job        string
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Summary    string
}

// StartRun records the beginning of a job run.
func (l *Ledger) StartRun(ctx context.Context, id, job string, dryRun bool) error {
	_, err := l.exec(ctx, "INSERT INTO runs (id, job, dry_run, started_at) VALUES (?, ?, ?, ?)",
		id, job, boolToInt(dryRun), l.timestamp())
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// FinishRun stamps the end of a run with its summary line.
func (l *Ledger) FinishRun(ctx context.Context, id, summary string) error {
	_, err := l.exec(ctx, "UPDATE runs SET finished_at = ?, summary = ? WHERE id = ?", l.timestamp(), summary, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, job, dry_run, started_at, finished_at, summary FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			run               Run
			dryRun            int
			started, finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Job, &dryRun, &started, &finished, &run.Summary); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.DryRun = dryRun != 0
		run.StartedAt = parseTimestamp(started)
		run.FinishedAt = parseTimestamp(finished)
		out = append(out, run)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
