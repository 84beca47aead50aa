// Package reconcile applies parsed recommendations against the live
// calendar, one independent mutation per recommendation. One failing
// action never unwinds the batch: every recommendation gets exactly one
// outcome, in input order.
package reconcile

import (
	"context"
	"time"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	appLog "github.com/James-C137/tempo-scheduler/internal/log"
	"github.com/James-C137/tempo-scheduler/internal/suggest"
)

// originMarker tags events created by this tool so later runs can tell
// automated creations apart from user-authored events.
const originMarker = "tempo-scheduler"

// Status classifies one recommendation's outcome.
type Status string

const (
	StatusApplied Status = "APPLIED"
	StatusSkipped Status = "SKIPPED"
	StatusFailed  Status = "FAILED"
)

// Outcome is the per-recommendation result.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Result pairs a recommendation with what happened to it.
type Result struct {
	Recommendation suggest.Recommendation `json:"recommendation"`
	Outcome        Outcome                `json:"outcome"`
}

// Apply executes each recommendation's action against the writer and
// returns one Result per recommendation, in input order.
//
// Per-action policy:
//   - CREATE is always attempted, with provenance metadata attached.
//   - MOVE and DELETE are recorded as skipped: the write collaborator
//     does not support them yet, and attempting an unsupported mutation
//     would be worse than saying so.
//   - A writer error is isolated to its own recommendation.
//   - An unknown action type (should not survive parsing, but defend
//     anyway) is skipped.
//
// No action is retried and there is no transactional grouping.
func Apply(ctx context.Context, recs []suggest.Recommendation, w calendar.Writer, runID string) []Result {
	results := make([]Result, 0, len(recs))

	for i, rec := range recs {
		outcome := applyOne(ctx, rec, w, runID)
		results = append(results, Result{Recommendation: rec, Outcome: outcome})
		appLog.Info("reconcile: action processed",
			"index", i,
			"action", string(rec.Action.Type),
			"title", rec.Title,
			"status", string(outcome.Status),
			"reason", outcome.Reason,
		)
	}

	return results
}

func applyOne(ctx context.Context, rec suggest.Recommendation, w calendar.Writer, runID string) Outcome {
	switch rec.Action.Type {
	case suggest.ActionCreate:
		ev := calendar.NewEvent{
			Title:       rec.Action.Title,
			Description: rec.Action.Description,
			Start:       rec.Action.Start,
			End:         rec.Action.End,
		}
		prov := calendar.Provenance{
			"origin":     originMarker,
			"run_id":     runID,
			"priority":   string(rec.Priority),
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := w.Create(ctx, ev, prov); err != nil {
			return Outcome{Status: StatusFailed, Reason: err.Error()}
		}
		return Outcome{Status: StatusApplied}

	case suggest.ActionMove, suggest.ActionDelete:
		return Outcome{Status: StatusSkipped, Reason: "not supported"}

	default:
		return Outcome{Status: StatusSkipped, Reason: "unknown action type"}
	}
}
