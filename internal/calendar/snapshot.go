package calendar

import (
	"sort"
	"time"
)

// ExistingEvent is the normalized view of one event already on the
// calendar: just enough context for the oracle to schedule around it.
type ExistingEvent struct {
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Snapshot is a bounded, read-only view of existing events for one run.
// It is captured once, before the oracle call, and is stale as soon as
// the run completes; callers needing freshness must rebuild it.
type Snapshot struct {
	// WindowStart / WindowEnd bound the events contained, half-open
	// [WindowStart, WindowEnd).
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`

	// Events is deduplicated by (title, start, end) and sorted by start.
	Events []ExistingEvent `json:"events"`
}

// NewSnapshot builds a Snapshot from raw event tuples, dropping events
// outside the window and exact duplicates.
func NewSnapshot(windowStart, windowEnd time.Time, events []ExistingEvent) Snapshot {
	seen := make(map[eventKey]struct{}, len(events))
	kept := make([]ExistingEvent, 0, len(events))

	for _, ev := range events {
		if !overlaps(ev.Start, ev.End, windowStart, windowEnd) {
			continue
		}
		k := eventKey{ev.Title, ev.Start.UnixNano(), ev.End.UnixNano()}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, ev)
	}

	sort.Slice(kept, func(i, j int) bool {
		if !kept[i].Start.Equal(kept[j].Start) {
			return kept[i].Start.Before(kept[j].Start)
		}
		return kept[i].Title < kept[j].Title
	})

	return Snapshot{
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		Events:      kept,
	}
}

type eventKey struct {
	title      string
	startNanos int64
	endNanos   int64
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aEnd.After(bStart) {
		return false
	}
	if !bEnd.After(aStart) {
		return false
	}
	return true
}
