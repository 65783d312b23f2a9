package migrate

import (
	"fmt"
	"strings"
	"time"

	"wwfm/internal/migrate/ledger"
)

// Row is one line of a job report.
type Row struct {
	Kind     string `json:"kind"`
	LegacyID string `json:"legacy_id"`
	Title    string `json:"title,omitempty"`
	CosmicID string `json:"cosmic_id,omitempty"`
	// Target names what the record was matched or linked to, if anything.
	Target string        `json:"target,omitempty"`
	Score  float64       `json:"score,omitempty"`
	Status ledger.Status `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

// Report collects the outcome of a run for review.
type Report struct {
	Job      string    `json:"job"`
	RunID    string    `json:"run_id,omitempty"`
	DryRun   bool      `json:"dry_run"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Rows     []Row     `json:"rows"`
}

// Counts tallies rows by status.
func (r *Report) Counts() map[ledger.Status]int {
	counts := make(map[ledger.Status]int)
	for _, row := range r.Rows {
		counts[row.Status]++
	}
	return counts
}

// Filter returns the rows with the given status.
func (r *Report) Filter(status ledger.Status) []Row {
	var out []Row
	for _, row := range r.Rows {
		if row.Status == status {
			out = append(out, row)
		}
	}
	return out
}

// Summary is a one-line tally such as "12 migrated, 3 skipped, 1 review".
func (r *Report) Summary() string {
	counts := r.Counts()
	var parts []string
	for _, status := range []ledger.Status{ledger.StatusMigrated, ledger.StatusSkipped, ledger.StatusReview, ledger.StatusFailed} {
		if n := counts[status]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, status))
		}
	}
	if len(parts) == 0 {
		return "nothing to do"
	}
	out := strings.Join(parts, ", ")
	if r.DryRun {
		out += " (dry run)"
	}
	return out
}
