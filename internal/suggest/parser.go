package suggest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	appLog "github.com/James-C137/tempo-scheduler/internal/log"
)

// ErrMalformedOutput indicates the oracle response failed structural
// decode: not JSON, or missing the top-level recommendations sequence.
// Fatal to the run; no fallback recommendation set is synthesized.
var ErrMalformedOutput = errors.New("suggest: malformed oracle output")

// ResponseOpening is the JSON opening the request template tells the
// oracle to begin its response with. The leading brace doubles as the
// fixed seed prefix: when a response arrives without it (the template
// pre-seeds the opening brace to reduce truncation risk), Parse
// re-prepends exactly that brace before decoding. This is the only
// repair strategy; anything else malformed stays malformed.
const ResponseOpening = `{"recommendations": [`

// wireRecommendation is the untrusted per-element candidate shape.
// Instants stay strings here so a bad timestamp is a per-element
// validation failure rather than a whole-batch decode error.
type wireRecommendation struct {
	Priority    string     `json:"priority"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Rationale   string     `json:"rationale"`
	Action      wireAction `json:"action"`
}

type wireAction struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Start       string `json:"start"`
	End         string `json:"end"`
	EventRef    string `json:"event_ref"`
	NewStart    string `json:"new_start"`
	NewEnd      string `json:"new_end"`
}

// Parse validates and decodes raw oracle output into Recommendations.
//
// Structural failures (bad JSON, no recommendations sequence) return
// ErrMalformedOutput before any element is inspected. Per-element
// validation failures (unknown priority, unknown action type, bad or
// inverted instants) drop that element with a log line and never abort
// the rest. An empty surviving list is a valid result.
func Parse(raw string) ([]Recommendation, error) {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "{") {
		text = "{" + text
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	rawSeq, ok := top["recommendations"]
	if !ok {
		return nil, fmt.Errorf("%w: missing recommendations field", ErrMalformedOutput)
	}

	var elems []wireRecommendation
	if err := json.Unmarshal(rawSeq, &elems); err != nil {
		return nil, fmt.Errorf("%w: recommendations is not a sequence: %v", ErrMalformedOutput, err)
	}

	out := make([]Recommendation, 0, len(elems))
	for i, w := range elems {
		rec, err := validateElement(w)
		if err != nil {
			appLog.Error("suggest: dropping invalid recommendation", err, "index", i, "title", w.Title)
			continue
		}
		out = append(out, rec)
	}

	appLog.Info("suggest: parsed oracle output", "total", len(elems), "valid", len(out))
	return out, nil
}

func validateElement(w wireRecommendation) (Recommendation, error) {
	var rec Recommendation

	prio := PriorityLevel(strings.ToUpper(strings.TrimSpace(w.Priority)))
	switch prio {
	case PriorityHigh, PriorityMedium, PriorityLow:
	default:
		return rec, fmt.Errorf("unknown priority %q", w.Priority)
	}

	action, err := validateAction(w.Action)
	if err != nil {
		return rec, err
	}

	return Recommendation{
		Priority:    prio,
		Title:       w.Title,
		Description: w.Description,
		Rationale:   w.Rationale,
		Action:      action,
	}, nil
}

func validateAction(w wireAction) (Action, error) {
	typ := ActionType(strings.ToUpper(strings.TrimSpace(w.Type)))

	switch typ {
	case ActionCreate:
		start, end, err := parseInterval(w.Start, w.End)
		if err != nil {
			return Action{}, err
		}
		return Action{
			Type:        ActionCreate,
			Title:       w.Title,
			Description: w.Description,
			Start:       start,
			End:         end,
		}, nil

	case ActionMove:
		if strings.TrimSpace(w.EventRef) == "" {
			return Action{}, errors.New("move action missing event_ref")
		}
		start, end, err := parseInterval(w.NewStart, w.NewEnd)
		if err != nil {
			return Action{}, err
		}
		return Action{
			Type:     ActionMove,
			EventRef: w.EventRef,
			NewStart: start,
			NewEnd:   end,
		}, nil

	case ActionDelete:
		if strings.TrimSpace(w.EventRef) == "" {
			return Action{}, errors.New("delete action missing event_ref")
		}
		return Action{
			Type:     ActionDelete,
			EventRef: w.EventRef,
		}, nil

	default:
		return Action{}, fmt.Errorf("unknown action type %q", w.Type)
	}
}

// parseInterval decodes a start/end instant pair and enforces the
// strict ordering invariant start < end.
func parseInterval(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start instant %q", startStr)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end instant %q", endStr)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", startStr, endStr)
	}
	return start, end, nil
}
