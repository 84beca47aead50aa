// Package suggest defines the typed recommendation model and the
// boundary-validation parser that decodes untrusted oracle output into
// it. Nothing downstream of this package touches raw oracle text.
package suggest

import "time"

// PriorityLevel is the oracle-assigned importance of a recommendation.
type PriorityLevel string

const (
	PriorityHigh   PriorityLevel = "HIGH"
	PriorityMedium PriorityLevel = "MEDIUM"
	PriorityLow    PriorityLevel = "LOW"
)

// ActionType tags the calendar mutation a recommendation carries.
type ActionType string

const (
	ActionCreate ActionType = "CREATE"
	ActionMove   ActionType = "MOVE"
	ActionDelete ActionType = "DELETE"
)

// Action is the tagged variant of a calendar mutation. Which fields are
// meaningful depends on Type:
//
//	CREATE: Title, Description, Start, End
//	MOVE:   EventRef, NewStart, NewEnd
//	DELETE: EventRef
type Action struct {
	Type ActionType `json:"type"`

	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start,omitempty"`
	End         time.Time `json:"end,omitempty"`

	EventRef string    `json:"event_ref,omitempty"`
	NewStart time.Time `json:"new_start,omitempty"`
	NewEnd   time.Time `json:"new_end,omitempty"`
}

// Recommendation is one proposed calendar change. Immutable once parsed.
type Recommendation struct {
	Priority    PriorityLevel `json:"priority"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	// Rationale explains the oracle's choice. Audit-only, never executed.
	Rationale string `json:"rationale"`
	Action    Action `json:"action"`
}
