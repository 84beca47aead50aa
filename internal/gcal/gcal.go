// Package gcal is a minimal Google Calendar write collaborator. It
// implements calendar.Writer over the Calendar v3 REST API with an
// oauth2-authenticated HTTP client; it deliberately does not know how
// the token was obtained.
package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
	appLog "github.com/James-C137/tempo-scheduler/internal/log"
)

const defaultBaseURL = "https://www.googleapis.com/calendar/v3"

// Client creates events on a single Google Calendar.
type Client struct {
	http       *http.Client
	calendarID string
	baseURL    string
}

// NewClient constructs a Client writing to calendarID ("primary" for the
// authenticated user's default calendar).
func NewClient(ctx context.Context, ts oauth2.TokenSource, calendarID string) *Client {
	httpClient := oauth2.NewClient(ctx, ts)
	httpClient.Timeout = 15 * time.Second
	return &Client{
		http:       httpClient,
		calendarID: calendarID,
		baseURL:    defaultBaseURL,
	}
}

// NewClientWithBaseURL is NewClient with an overridable API endpoint,
// used by tests to point at a local server.
func NewClientWithBaseURL(ctx context.Context, ts oauth2.TokenSource, calendarID, baseURL string) *Client {
	c := NewClient(ctx, ts, calendarID)
	c.baseURL = baseURL
	return c
}

// eventBody mirrors the subset of the Calendar v3 Event resource we
// write.
type eventBody struct {
	Summary     string         `json:"summary"`
	Description string         `json:"description,omitempty"`
	Start       eventTime      `json:"start"`
	End         eventTime      `json:"end"`
	Extended    *extendedProps `json:"extendedProperties,omitempty"`
}

type eventTime struct {
	DateTime string `json:"dateTime"`
}

type extendedProps struct {
	Private map[string]string `json:"private,omitempty"`
}

// Create inserts a new event with the given provenance metadata attached
// as private extended properties.
func (c *Client) Create(ctx context.Context, ev calendar.NewEvent, prov calendar.Provenance) error {
	body := eventBody{
		Summary:     ev.Title,
		Description: ev.Description,
		Start:       eventTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         eventTime{DateTime: ev.End.Format(time.RFC3339)},
	}
	if len(prov) > 0 {
		body.Extended = &extendedProps{Private: prov}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/calendars/%s/events", c.baseURL, url.PathEscape(c.calendarID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gcal create: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read a bounded slice of the error body for the log line.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		appLog.Error("gcal create failed", fmt.Errorf("status %s", resp.Status),
			"calendar_id", c.calendarID, "title", ev.Title, "body", string(snippet))
		return fmt.Errorf("gcal create: %s", resp.Status)
	}

	appLog.Info("gcal event created", "calendar_id", c.calendarID, "title", ev.Title,
		"start", ev.Start.Format(time.RFC3339), "end", ev.End.Format(time.RFC3339))
	return nil
}

// Move is not implemented by this collaborator yet.
func (c *Client) Move(ctx context.Context, eventRef string, newStart, newEnd time.Time) error {
	return calendar.ErrNotSupported
}

// Delete is not implemented by this collaborator yet.
func (c *Client) Delete(ctx context.Context, eventRef string) error {
	return calendar.ErrNotSupported
}
