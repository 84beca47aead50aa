// Package prompt composes the single request payload sent to the
// suggestion oracle. Build is a pure function of its inputs: identical
// policy, snapshot and instant produce a byte-identical prompt, which
// keeps low-temperature runs reproducible.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	"github.com/James-C137/tempo-scheduler/internal/policy"
	"github.com/James-C137/tempo-scheduler/internal/suggest"
)

const defaultLookahead = 7 * 24 * time.Hour

const preamble = `You are a personal scheduling assistant. Given the user's scheduling policy and their existing calendar, propose concrete calendar changes.

You must output ONLY a JSON object with this exact shape:
{
  "recommendations": [
    {
      "priority": "HIGH" | "MEDIUM" | "LOW",
      "title": string,
      "description": string,
      "rationale": string (why this change, never executed),
      "action": {
        "type": "CREATE" | "MOVE" | "DELETE",
        "title": string (CREATE only),
        "description": string (CREATE only),
        "start": RFC3339 timestamp with zone (CREATE only),
        "end": RFC3339 timestamp with zone (CREATE only),
        "event_ref": string (MOVE/DELETE only),
        "new_start": RFC3339 timestamp with zone (MOVE only),
        "new_end": RFC3339 timestamp with zone (MOVE only)
      }
    }
  ]
}

CRITICAL RULES:
1. Every timestamp must be RFC3339 with an explicit timezone offset.
2. For CREATE and MOVE, start must be strictly before end.
3. Do not schedule over existing events unless a rule requires it.
4. Never invent event references; only reference events listed below.
5. Output ONLY the JSON object, no markdown, no explanation.`

// Build serializes the policy, snapshot and current instant into the
// oracle request. The scheduling window runs from now to the snapshot's
// window end (or now + 7 days when the snapshot window is degenerate).
func Build(p *policy.Model, snap calendar.Snapshot, now time.Time) string {
	windowEnd := snap.WindowEnd
	if !windowEnd.After(now) {
		windowEnd = now.Add(defaultLookahead)
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "CURRENT TIME: %s\n", now.Format(time.RFC3339))
	fmt.Fprintf(&b, "SCHEDULING WINDOW: %s to %s\n\n", now.Format(time.RFC3339), windowEnd.Format(time.RFC3339))

	writePriorities(&b, p.Priorities)
	writeRules(&b, "GENERAL DIRECTIVES (earlier entries win when rules conflict)", p.GeneralDirectives)
	writeRules(&b, "ENERGY DIRECTIVES", p.EnergyDirectives)
	writeRules(&b, "RECOVERY DIRECTIVES", p.RecoveryDirectives)
	writeHardConstraints(&b, p.UserRules)
	writeRecurring(&b, p.RecurringEvents, now, windowEnd)
	writeAdhoc(&b, p.AdhocRequests, windowEnd)
	writeSnapshot(&b, snap)

	fmt.Fprintf(&b, "Begin your response with %s\n", suggest.ResponseOpening)
	return b.String()
}

func writePriorities(b *strings.Builder, priorities []policy.Priority) {
	if len(priorities) == 0 {
		return
	}
	b.WriteString("PRIORITIES (lower rank wins ties):\n")
	for _, p := range priorities {
		fmt.Fprintf(b, "%d. %s\n", p.Rank, p.Label)
	}
	b.WriteString("\n")
}

func writeRules(b *strings.Builder, heading string, rules []string) {
	if len(rules) == 0 {
		return
	}
	b.WriteString(heading + ":\n")
	for _, r := range rules {
		fmt.Fprintf(b, "- %s\n", r)
	}
	b.WriteString("\n")
}

// writeHardConstraints emits the user rules plus the constraints every
// schedule must respect regardless of policy content. Enforcement is
// delegated to the oracle; the parser only re-validates structure.
func writeHardConstraints(b *strings.Builder, userRules []string) {
	b.WriteString("HARD CONSTRAINTS (must be honored literally by every generated event):\n")
	for _, r := range userRules {
		fmt.Fprintf(b, "- %s\n", r)
	}
	b.WriteString("- no high-intensity activity after 20:00\n")
	b.WriteString("- keep breakfast, lunch and dinner windows free around 08:00, 12:30 and 18:30\n")
	b.WriteString("\n")
}

func writeRecurring(b *strings.Builder, events []policy.RecurringEvent, windowStart, windowEnd time.Time) {
	if len(events) == 0 {
		return
	}
	b.WriteString("RECURRING COMMITMENTS:\n")
	for _, ev := range events {
		n := policy.RequiredInstances(ev, windowStart, windowEnd)
		fmt.Fprintf(b, "- %s (generate at least %d instance(s) inside the scheduling window)\n", ev.Text, n)
	}
	b.WriteString("\n")
}

func writeAdhoc(b *strings.Builder, requests []policy.AdhocRequest, windowEnd time.Time) {
	if len(requests) == 0 {
		return
	}
	b.WriteString("ONE-OFF REQUESTS (schedule strictly inside the stated deadline window):\n")
	for _, req := range requests {
		deadline := windowEnd
		if req.Deadline != nil {
			deadline = *req.Deadline
		}
		fmt.Fprintf(b, "- %s (deadline: %s)\n", req.Text, deadline.Format(time.RFC3339))
	}
	b.WriteString("\n")
}

// writeSnapshot serializes existing events as bounded summary/start/end
// triples only. No recursion into event metadata: request size stays
// proportional to event count.
func writeSnapshot(b *strings.Builder, snap calendar.Snapshot) {
	if len(snap.Events) == 0 {
		b.WriteString("EXISTING CALENDAR: empty\n\n")
		return
	}
	b.WriteString("EXISTING CALENDAR:\n")
	for _, ev := range snap.Events {
		fmt.Fprintf(b, "- %s | %s | %s\n", ev.Title, ev.Start.Format(time.RFC3339), ev.End.Format(time.RFC3339))
	}
	b.WriteString("\n")
}
