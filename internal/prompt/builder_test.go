package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	"github.com/James-C137/tempo-scheduler/internal/policy"
)

func testPolicy() *policy.Model {
	deadline := time.Date(2024, 1, 4, 17, 0, 0, 0, time.UTC)
	m := &policy.Model{
		Priorities: []policy.Priority{
			{Rank: 1, Label: "health"},
			{Rank: 2, Label: "family"},
		},
		GeneralDirectives: []string{"prefer mornings for focused work"},
		EnergyDirectives:  []string{"no back-to-back intense blocks"},
		RecurringEvents: []policy.RecurringEvent{
			{Text: "30 minute workout every morning"},
			{Text: "grocery run once a week"},
		},
		AdhocRequests: []policy.AdhocRequest{
			{Text: "book a dentist appointment", Deadline: &deadline},
		},
	}
	m.Normalize()
	return m
}

func testSnapshot(now time.Time) calendar.Snapshot {
	return calendar.NewSnapshot(now.Add(-24*time.Hour), now.Add(7*24*time.Hour), []calendar.ExistingEvent{
		{Title: "Standup", Start: now.Add(2 * time.Hour), End: now.Add(2*time.Hour + 30*time.Minute)},
	})
}

func TestBuildIsDeterministic(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	p := testPolicy()
	snap := testSnapshot(now)

	first := Build(p, snap, now)
	second := Build(p, snap, now)

	if first != second {
		t.Fatalf("Build() is not byte-identical across calls with identical inputs")
	}
}

func TestBuildStatesRequiredInstanceCounts(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	out := Build(testPolicy(), testSnapshot(now), now)

	if !strings.Contains(out, "30 minute workout every morning (generate at least 7 instance(s)") {
		t.Fatalf("Build() missing daily instance requirement:\n%s", out)
	}
	if !strings.Contains(out, "grocery run once a week (generate at least 1 instance(s)") {
		t.Fatalf("Build() missing weekly instance requirement:\n%s", out)
	}
}

func TestBuildEmbedsHardConstraintsAndDeadline(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	out := Build(testPolicy(), testSnapshot(now), now)

	for _, want := range []string{
		"day bounds",
		"work hours",
		"no high-intensity activity after 20:00",
		"book a dentist appointment (deadline: 2024-01-04T17:00:00Z)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("Build() missing %q:\n%s", want, out)
		}
	}
}

func TestBuildSerializesSnapshotAsTriples(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	out := Build(testPolicy(), testSnapshot(now), now)

	if !strings.Contains(out, "- Standup | 2024-01-01T08:00:00Z | 2024-01-01T08:30:00Z") {
		t.Fatalf("Build() missing snapshot triple:\n%s", out)
	}
}

func TestBuildEmptySnapshot(t *testing.T) {
	now := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	snap := calendar.NewSnapshot(now.Add(-24*time.Hour), now.Add(7*24*time.Hour), nil)

	out := Build(testPolicy(), snap, now)
	if !strings.Contains(out, "EXISTING CALENDAR: empty") {
		t.Fatalf("Build() should state the calendar is empty:\n%s", out)
	}
}
