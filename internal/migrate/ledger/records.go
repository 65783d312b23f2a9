package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is the outcome recorded for a legacy record.
type Status string

const (
	StatusMigrated Status = "migrated"
	StatusSkipped  Status = "skipped"
	StatusFailed   Status = "failed"
	StatusReview   Status = "review"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusMigrated, StatusSkipped, StatusFailed, StatusReview:
		return true
	}
	return false
}

// Record is one ledger row.
type Record struct {
	Kind      string
	LegacyID  string
	CosmicID  string
	Status    Status
	Detail    string
	RunID     string
	UpdatedAt time.Time
}

const recordColumns = "kind, legacy_id, cosmic_id, status, detail, run_id, updated_at"

func scanRecord(scanner interface{ Scan(dest ...any) error }) (Record, error) {
	var (
		rec     Record
		status  string
		updated sql.NullString
	)
	if err := scanner.Scan(&rec.Kind, &rec.LegacyID, &rec.CosmicID, &status, &rec.Detail, &rec.RunID, &updated); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	rec.UpdatedAt = parseTimestamp(updated)
	return rec, nil
}

// Put inserts or replaces the row for (rec.Kind, rec.LegacyID). A row already
// marked migrated keeps its Cosmic ID when rec carries none.
func (l *Ledger) Put(ctx context.Context, rec Record) error {
	if rec.Kind == "" || rec.LegacyID == "" {
		return errors.New("ledger record requires kind and legacy id")
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("ledger status %q is not valid", rec.Status)
	}
	_, err := l.exec(ctx, `
INSERT INTO records (`+recordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (kind, legacy_id) DO UPDATE SET
    cosmic_id = CASE WHEN excluded.cosmic_id = '' THEN records.cosmic_id ELSE excluded.cosmic_id END,
    status = excluded.status,
    detail = excluded.detail,
    run_id = excluded.run_id,
    updated_at = excluded.updated_at`,
		rec.Kind, rec.LegacyID, rec.CosmicID, string(rec.Status), rec.Detail, rec.RunID, l.timestamp())
	if err != nil {
		return fmt.Errorf("put ledger record %s/%s: %w", rec.Kind, rec.LegacyID, err)
	}
	return nil
}

// Lookup returns the row for (kind, legacyID).
func (l *Ledger) Lookup(ctx context.Context, kind, legacyID string) (Record, bool, error) {
	row := l.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE kind = ? AND legacy_id = ?", kind, legacyID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup ledger record %s/%s: %w", kind, legacyID, err)
	}
	return rec, true, nil
}

// Migrated reports the Cosmic ID recorded for a migrated row.
func (l *Ledger) Migrated(ctx context.Context, kind, legacyID string) (string, bool, error) {
	rec, ok, err := l.Lookup(ctx, kind, legacyID)
	if err != nil || !ok || rec.Status != StatusMigrated || rec.CosmicID == "" {
		return "", false, err
	}
	return rec.CosmicID, true, nil
}

// ByCosmicID finds the row of kind that produced cosmicID.
func (l *Ledger) ByCosmicID(ctx context.Context, kind, cosmicID string) (Record, bool, error) {
	row := l.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE kind = ? AND cosmic_id = ? LIMIT 1", kind, cosmicID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("lookup ledger record by cosmic id %s: %w", cosmicID, err)
	}
	return rec, true, nil
}

// List returns the rows of kind, optionally filtered by status, in legacy ID
// order.
func (l *Ledger) List(ctx context.Context, kind string, status Status) ([]Record, error) {
	query := "SELECT " + recordColumns + " FROM records WHERE kind = ?"
	args := []any{kind}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY legacy_id"
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger records: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Counts tallies the rows of kind by status. An empty kind counts every row.
func (l *Ledger) Counts(ctx context.Context, kind string) (map[Status]int, error) {
	query := "SELECT status, COUNT(1) FROM records"
	var args []any
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " GROUP BY status"
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count ledger records: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan ledger count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Reset deletes the rows of kind and returns how many were removed.
func (l *Ledger) Reset(ctx context.Context, kind string) (int64, error) {
	res, err := l.exec(ctx, "DELETE FROM records WHERE kind = ?", kind)
	if err != nil {
		return 0, fmt.Errorf("reset ledger %s: %w", kind, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset ledger %s: %w", kind, err)
	}
	return n, nil
}
