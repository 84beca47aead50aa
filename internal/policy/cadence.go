package policy

import (
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appLog "github.com/James-C137/tempo-scheduler/internal/log"
)

// RequiredInstances reports how many instances of a recurring event the
// oracle must generate inside [windowStart, windowEnd).
//
// When the entry carries an explicit RRULE the rule is expanded over the
// window and the occurrence count is exact. Otherwise cadence is inferred
// from keywords in the free text: daily entries require one instance per
// day of the window, weekly entries require one instance total.
func RequiredInstances(ev RecurringEvent, windowStart, windowEnd time.Time) int {
	days := int(windowEnd.Sub(windowStart).Hours() / 24)
	if days < 1 {
		days = 1
	}

	if ev.RRule != "" {
		if n, ok := countRRuleOccurrences(ev.RRule, windowStart, windowEnd); ok {
			return n
		}
		// Unparseable RRULE: fall through to keyword inference.
	}

	text := strings.ToLower(ev.Text)
	switch {
	case strings.Contains(text, "every day"),
		strings.Contains(text, "daily"),
		strings.Contains(text, "each day"),
		strings.Contains(text, "every morning"),
		strings.Contains(text, "every evening"),
		strings.Contains(text, "every night"):
		return days
	default:
		// Weekly or unrecognized cadence: require at least one instance.
		return 1
	}
}

// countRRuleOccurrences expands an RRULE anchored at windowStart and
// counts occurrences inside [windowStart, windowEnd).
func countRRuleOccurrences(raw string, windowStart, windowEnd time.Time) (int, bool) {
	r, err := rrule.StrToRRule(raw)
	if err != nil {
		appLog.Error("policy: failed to parse RRULE", err, "rrule", raw)
		return 0, false
	}
	r.DTStart(windowStart)

	occ := r.Between(windowStart, windowEnd, true)
	// Between is inclusive on both ends; drop an occurrence landing
	// exactly on windowEnd to keep the window half-open.
	n := 0
	for _, t := range occ {
		if t.Before(windowEnd) {
			n++
		}
	}
	if n == 0 {
		// A rule that yields nothing in the window still obliges the
		// oracle to schedule at least one instance overall.
		n = 1
	}
	return n, true
}
