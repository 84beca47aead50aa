package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	"github.com/James-C137/tempo-scheduler/internal/oracle"
	"github.com/James-C137/tempo-scheduler/internal/policy"
	"github.com/James-C137/tempo-scheduler/internal/reconcile"
	"github.com/James-C137/tempo-scheduler/internal/suggest"
)

type staticReader struct {
	events []calendar.ExistingEvent
	err    error
}

func (r staticReader) ListEvents(ctx context.Context, t0, t1 time.Time) ([]calendar.ExistingEvent, error) {
	return r.events, r.err
}

type recordingWriter struct {
	created []calendar.NewEvent
}

func (w *recordingWriter) Create(ctx context.Context, ev calendar.NewEvent, prov calendar.Provenance) error {
	w.created = append(w.created, ev)
	return nil
}

func (w *recordingWriter) Move(ctx context.Context, eventRef string, newStart, newEnd time.Time) error {
	return calendar.ErrNotSupported
}

func (w *recordingWriter) Delete(ctx context.Context, eventRef string) error {
	return calendar.ErrNotSupported
}

// sevenDailyCreates builds an oracle response with one CREATE per day.
func sevenDailyCreates(now time.Time) string {
	var items []string
	for i := 0; i < 7; i++ {
		start := now.Add(time.Duration(i)*24*time.Hour + time.Hour)
		end := start.Add(30 * time.Minute)
		items = append(items, fmt.Sprintf(
			`{"priority": "HIGH", "title": "Workout day %d", "rationale": "daily habit",
				"action": {"type": "CREATE", "title": "Workout day %d",
					"start": %q, "end": %q}}`,
			i+1, i+1, start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}
	return `{"recommendations": [` + strings.Join(items, ",") + `]}`
}

func dailyPolicy() *policy.Model {
	m := &policy.Model{
		RecurringEvents: []policy.RecurringEvent{{Text: "30 minute workout every morning"}},
	}
	m.Normalize()
	return m
}

func TestRunEndToEndSevenDailyCreates(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	writer := &recordingWriter{}
	fake := oracle.NewFakeClient(sevenDailyCreates(now))

	p := &Pipeline{
		Policy:    dailyPolicy(),
		Reader:    staticReader{},
		Oracle:    fake,
		Writer:    writer,
		Lookback:  24 * time.Hour,
		Lookahead: 7 * 24 * time.Hour,
		Now:       func() time.Time { return now },
	}

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(report.Results) != 7 {
		t.Fatalf("Run() produced %d results, want 7", len(report.Results))
	}
	for i, res := range report.Results {
		if res.Outcome.Status != reconcile.StatusApplied {
			t.Fatalf("result[%d] status = %s, want APPLIED", i, res.Outcome.Status)
		}
	}
	if len(writer.created) != 7 {
		t.Fatalf("writer saw %d creates, want 7", len(writer.created))
	}
	if report.RunID == "" {
		t.Fatalf("Run() produced empty run ID")
	}
	if len(fake.Prompts) != 1 {
		t.Fatalf("oracle called %d times, want 1", len(fake.Prompts))
	}
	if !strings.Contains(fake.Prompts[0], "30 minute workout every morning") {
		t.Fatalf("prompt missing recurring entry:\n%s", fake.Prompts[0])
	}
}

func TestRunSnapshotFailureIsFatal(t *testing.T) {
	p := &Pipeline{
		Policy:    dailyPolicy(),
		Reader:    staticReader{err: errors.New("feed unreachable")},
		Oracle:    oracle.NewFakeClient(`{"recommendations": []}`),
		Writer:    &recordingWriter{},
		Lookback:  24 * time.Hour,
		Lookahead: 7 * 24 * time.Hour,
	}

	_, err := p.Run(context.Background())
	if err == nil || !strings.HasPrefix(err.Error(), "snapshot:") {
		t.Fatalf("Run() error = %v, want snapshot-tagged error", err)
	}
}

func TestRunOracleFailureIsFatal(t *testing.T) {
	fake := oracle.NewFakeClient("")
	fake.Err = errors.New("rate limited")

	p := &Pipeline{
		Policy:    dailyPolicy(),
		Reader:    staticReader{},
		Oracle:    fake,
		Writer:    &recordingWriter{},
		Lookback:  24 * time.Hour,
		Lookahead: 7 * 24 * time.Hour,
	}

	_, err := p.Run(context.Background())
	if err == nil || !strings.HasPrefix(err.Error(), "oracle:") {
		t.Fatalf("Run() error = %v, want oracle-tagged error", err)
	}
}

func TestRunMalformedOutputIsFatal(t *testing.T) {
	writer := &recordingWriter{}
	p := &Pipeline{
		Policy:    dailyPolicy(),
		Reader:    staticReader{},
		Oracle:    oracle.NewFakeClient(`{"surprise": true}`),
		Writer:    writer,
		Lookback:  24 * time.Hour,
		Lookahead: 7 * 24 * time.Hour,
	}

	_, err := p.Run(context.Background())
	if !errors.Is(err, suggest.ErrMalformedOutput) {
		t.Fatalf("Run() error = %v, want ErrMalformedOutput", err)
	}
	if len(writer.created) != 0 {
		t.Fatalf("writer saw %d creates after malformed output, want 0", len(writer.created))
	}
}

func TestRunEmptyRecommendationsIsValid(t *testing.T) {
	p := &Pipeline{
		Policy:    dailyPolicy(),
		Reader:    staticReader{},
		Oracle:    oracle.NewFakeClient(`{"recommendations": []}`),
		Writer:    &recordingWriter{},
		Lookback:  24 * time.Hour,
		Lookahead: 7 * 24 * time.Hour,
	}

	report, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Results) != 0 {
		t.Fatalf("Run() produced %d results, want 0", len(report.Results))
	}
}
