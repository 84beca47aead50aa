package calendar

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	appLog "github.com/James-C137/tempo-scheduler/internal/log"
)

const maxOccurrencesPerEvent = 1000

// parsedEvent is the intermediate representation of a VEVENT before
// recurrence expansion into the snapshot window.
type parsedEvent struct {
	Summary string
	Start   time.Time
	End     time.Time

	RawRRule string
	ExDates  []time.Time
}

// parseICS parses a single ICS payload and expands its events into
// ExistingEvent tuples intersecting [t0, t1).
//
//   - The underlying library's VTIMEZONE/TZID handling constructs proper
//     time.Time values (with Location set).
//   - RRULE recurrences are expanded inside the window; EXDATE removes
//     exceptions. RECURRENCE-ID overrides are not resolved: the snapshot
//     only needs (title, start, end) accuracy, and an overridden instance
//     still occupies roughly the same slot.
//
// A VEVENT that fails to parse is logged and skipped; it must not take
// down the rest of the feed.
func parseICS(src Source, body []byte, t0, t1 time.Time) ([]ExistingEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	out := make([]ExistingEvent, 0)

	for _, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID)
			continue
		}
		out = append(out, expandEvent(ev, t0, t1)...)
	}

	appLog.Debug("ics parse completed", "id", src.ID, "event_count", len(out))
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (parsedEvent, error) {
	var out parsedEvent

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or invalid DTSTART")
	}
	end, err := ve.GetEndAt()
	if err != nil {
		// Events without DTEND are treated as zero-duration markers;
		// give them a nominal slot so overlap checks work.
		end = start.Add(30 * time.Minute)
	}
	out.Start = start
	out.End = end

	if rruleProp := ve.GetProperty(ical.ComponentPropertyRrule); rruleProp != nil {
		out.RawRRule = rruleProp.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if t, err := parseICSTime(part); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	return out, nil
}

// expandEvent turns a parsedEvent into concrete ExistingEvent instances
// inside [t0, t1).
func expandEvent(ev parsedEvent, t0, t1 time.Time) []ExistingEvent {
	if ev.RawRRule == "" {
		if !overlaps(ev.Start, ev.End, t0, t1) {
			return nil
		}
		return []ExistingEvent{{Title: ev.Summary, Start: ev.Start, End: ev.End}}
	}

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics: failed to parse RRULE", err, "summary", ev.Summary, "rrule", ev.RawRRule)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	// Query in the event's own location; Between is inclusive.
	occTimes := set.Between(t0.In(ev.Start.Location()), t1.In(ev.Start.Location()), true)
	if len(occTimes) > maxOccurrencesPerEvent {
		occTimes = occTimes[:maxOccurrencesPerEvent]
		appLog.Error("ics: truncated recurrence expansion", errors.New("occurrence cap reached"),
			"summary", ev.Summary, "cap", maxOccurrencesPerEvent)
	}

	dur := ev.End.Sub(ev.Start)
	out := make([]ExistingEvent, 0, len(occTimes))
	for _, occStart := range occTimes {
		out = append(out, ExistingEvent{
			Title: ev.Summary,
			Start: occStart,
			End:   occStart.Add(dur),
		})
	}
	return out
}

// parseICSTime parses a basic ICS date/date-time string into time.Time.
// Used for EXDATE values where full parameter context is unavailable.
func parseICSTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g., 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Local date-time, e.g., 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, time.Local)
	}

	// Date-only, e.g., 20250101
	return time.ParseInLocation("20060102", v, time.Local)
}
