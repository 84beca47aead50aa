// Package pipeline wires one end-to-end run: snapshot the calendar,
// build the oracle request, call the oracle, parse its output, and
// reconcile the surviving recommendations against the live calendar.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	appLog "github.com/James-C137/tempo-scheduler/internal/log"
	"github.com/James-C137/tempo-scheduler/internal/policy"
	"github.com/James-C137/tempo-scheduler/internal/prompt"
	"github.com/James-C137/tempo-scheduler/internal/reconcile"
	"github.com/James-C137/tempo-scheduler/internal/suggest"
)

// Reader lists existing events for the snapshot window. A read failure
// is fatal to the run.
type Reader interface {
	ListEvents(ctx context.Context, t0, t1 time.Time) ([]calendar.ExistingEvent, error)
}

// Oracle is the minimal slice of the oracle client the pipeline needs.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pipeline holds the collaborators for one or more runs. All of them
// must be ready to use; the pipeline performs no credential handling.
type Pipeline struct {
	Policy *policy.Model
	Reader Reader
	Oracle Oracle
	Writer calendar.Writer

	// Lookback / Lookahead bound the snapshot window around "now".
	Lookback  time.Duration
	Lookahead time.Duration

	// Now is the clock; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// Run executes one complete pipeline pass.
//
// Fatal stages (snapshot read, oracle call, structural parse) abort the
// run with a stage-tagged error. Per-recommendation write failures do
// not: they surface as Failed outcomes in the returned report.
func (p *Pipeline) Run(ctx context.Context) (*reconcile.Report, error) {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	runID := uuid.NewString()
	appLog.Info("pipeline run starting", "run_id", runID, "now", now.Format(time.RFC3339))

	t0 := now.Add(-p.Lookback)
	t1 := now.Add(p.Lookahead)

	events, err := p.Reader.ListEvents(ctx, t0, t1)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	snap := calendar.NewSnapshot(t0, t1, events)
	appLog.Info("snapshot captured", "run_id", runID, "event_count", len(snap.Events))

	req := prompt.Build(p.Policy, snap, now)

	raw, err := p.Oracle.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("oracle: %w", err)
	}

	recs, err := suggest.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	results := reconcile.Apply(ctx, recs, p.Writer, runID)

	report := &reconcile.Report{
		RunID:      runID,
		StartedAt:  now,
		FinishedAt: time.Now(),
		Results:    results,
	}

	applied, skipped, failed := report.Counts()
	appLog.Info("pipeline run finished", "run_id", runID,
		"recommendations", len(results), "applied", applied, "skipped", skipped, "failed", failed)

	return report, nil
}
