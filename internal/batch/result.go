package batch

import (
	"time"

	"anefwatch/internal/types"
)

// Result is the ordered record of one run: one entry per processed account.
type Result struct {
	RunID      string
	Entries    []types.Attempt
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Failure is an account that did not reach its dashboard.
type Failure struct {
	Label   string
	Message string
}

// Summary aggregates a run for display.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []Failure
	// Flags counts entries per notification flag (OUI, NON, UPDATE_PASSWORD, N/A).
	Flags map[string]int
}

// Summary computes the run summary.
func (r *Result) Summary() Summary {
	s := Summary{
		Total:   len(r.Entries),
		Skipped: r.Skipped,
		Flags:   make(map[string]int),
	}
	for _, e := range r.Entries {
		s.Flags[e.Outcome.NotificationFlag()]++
		if e.Succeeded() {
			s.Succeeded++
			continue
		}
		s.Failed++
		s.Failures = append(s.Failures, Failure{Label: e.Record.Label(), Message: e.Message})
	}
	return s
}

// Elapsed returns the wall time of the run.
func (r *Result) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
