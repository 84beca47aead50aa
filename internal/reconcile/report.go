package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// Report is the run's final output: the ordered recommendation/outcome
// pairs plus run identity. It is returned to the caller and served by
// the status API; it is never persisted.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Results    []Result  `json:"results"`
}

// Counts returns the number of applied, skipped and failed outcomes.
func (r *Report) Counts() (applied, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Outcome.Status {
		case StatusApplied:
			applied++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// String renders the report for console output.
func (r *Report) String() string {
	var b strings.Builder

	applied, skipped, failed := r.Counts()
	fmt.Fprintf(&b, "run %s: %d recommendation(s), %d applied, %d skipped, %d failed\n",
		r.RunID, len(r.Results), applied, skipped, failed)

	for i, res := range r.Results {
		rec := res.Recommendation
		fmt.Fprintf(&b, "%2d. [%s] %s %s -> %s", i+1, rec.Priority, rec.Action.Type, rec.Title, res.Outcome.Status)
		if res.Outcome.Reason != "" {
			fmt.Fprintf(&b, " (%s)", res.Outcome.Reason)
		}
		b.WriteString("\n")
		if rec.Rationale != "" {
			fmt.Fprintf(&b, "    rationale: %s\n", rec.Rationale)
		}
	}

	return b.String()
}
