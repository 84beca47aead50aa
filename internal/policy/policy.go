package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Model is the typed in-memory representation of the scheduling policy.
// It is read-only input for one pipeline run; no component mutates it
// after Load returns.
type Model struct {
	// Priorities define tie-break order: lower rank = higher precedence.
	Priorities []Priority `yaml:"priorities" json:"priorities"`

	// Behavioral rule lists. Order is significant: earlier entries win
	// when rules conflict.
	GeneralDirectives  []string `yaml:"general_directives" json:"general_directives"`
	EnergyDirectives   []string `yaml:"energy_directives" json:"energy_directives"`
	RecoveryDirectives []string `yaml:"recovery_directives" json:"recovery_directives"`

	// UserRules are hard constraints the oracle must honor literally.
	// At least the day-bounds and work-hours rules are always present
	// (Normalize seeds them when missing).
	UserRules []string `yaml:"user_rules" json:"user_rules"`

	// RecurringEvents are free-text recurrence descriptions. Frequency,
	// anchor and duration are delegated to the oracle; an optional RRULE
	// lets the request builder state the exact required instance count.
	RecurringEvents []RecurringEvent `yaml:"recurring_events" json:"recurring_events"`

	// AdhocRequests are one-off requests, each implying a deadline window.
	AdhocRequests []AdhocRequest `yaml:"adhoc_requests" json:"adhoc_requests"`
}

// Priority is one (rank, label) pair.
type Priority struct {
	Rank  int    `yaml:"rank" json:"rank"`
	Label string `yaml:"label" json:"label"`
}

// RecurringEvent is one recurring commitment.
type RecurringEvent struct {
	// Text is the free-text description handed to the oracle, e.g.
	// "30 minute workout every morning before work".
	Text string `yaml:"text" json:"text"`

	// RRule is an optional iCalendar RRULE (e.g. "FREQ=WEEKLY;BYDAY=MO")
	// used to compute the required instance count for the lookahead
	// window. When empty, cadence is inferred from keywords in Text.
	RRule string `yaml:"rrule,omitempty" json:"rrule,omitempty"`
}

// AdhocRequest is one one-off scheduling request.
type AdhocRequest struct {
	// Text describes the request, e.g. "book a dentist appointment".
	Text string `yaml:"text" json:"text"`

	// Deadline, if set, is the end of the window the recommendation must
	// fall strictly inside. When nil, the lookahead window end applies.
	Deadline *time.Time `yaml:"deadline,omitempty" json:"deadline,omitempty"`
}

const (
	defaultDayBoundsRule = "day bounds: no events before 06:30 or after 22:30"
	defaultWorkHoursRule = "work hours: 09:00-17:00 Monday through Friday are reserved for work; do not schedule over them"
)

// Load reads a policy document from the given YAML path.
// A missing file is a configuration error: unlike the runtime config,
// the policy is never synthesized on first run.
func Load(path string) (*Model, error) {
	if path == "" {
		return nil, errors.New("policy path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy: %w", err)
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}

	m.Normalize()
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Normalize fills in hard-constraint rules that must always be present.
// Missing rule lists are left empty rather than nil-checked everywhere.
func (m *Model) Normalize() {
	if !m.hasRuleContaining("day bounds") {
		m.UserRules = append(m.UserRules, defaultDayBoundsRule)
	}
	if !m.hasRuleContaining("work hours") {
		m.UserRules = append(m.UserRules, defaultWorkHoursRule)
	}
}

// Validate checks structural invariants of the policy.
func (m *Model) Validate() error {
	prev := 0
	for i, p := range m.Priorities {
		if p.Rank <= 0 {
			return fmt.Errorf("policy: priority %d has non-positive rank %d", i, p.Rank)
		}
		if p.Rank <= prev {
			return fmt.Errorf("policy: priority ranks must be strictly increasing, got %d after %d", p.Rank, prev)
		}
		if strings.TrimSpace(p.Label) == "" {
			return fmt.Errorf("policy: priority %d has empty label", i)
		}
		prev = p.Rank
	}
	for i, ev := range m.RecurringEvents {
		if strings.TrimSpace(ev.Text) == "" {
			return fmt.Errorf("policy: recurring event %d has empty text", i)
		}
	}
	for i, req := range m.AdhocRequests {
		if strings.TrimSpace(req.Text) == "" {
			return fmt.Errorf("policy: adhoc request %d has empty text", i)
		}
	}
	return nil
}

func (m *Model) hasRuleContaining(substr string) bool {
	for _, r := range m.UserRules {
		if strings.Contains(strings.ToLower(r), substr) {
			return true
		}
	}
	return false
}
