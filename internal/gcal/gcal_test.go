package gcal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/James-C137/tempo-scheduler/internal/calendar"
)

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "test-token"})
	return NewClientWithBaseURL(context.Background(), ts, "primary", srv.URL), srv
}

func TestCreateSendsEventWithProvenance(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any

	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id": "evt-1"}`))
	})

	ev := calendar.NewEvent{
		Title:       "Light workout",
		Description: "",
		Start:       time.Date(2024, 1, 1, 7, 0, 0, 0, time.UTC),
		End:         time.Date(2024, 1, 1, 7, 15, 0, 0, time.UTC),
	}
	prov := calendar.Provenance{"origin": "tempo-scheduler", "run_id": "run-1"}

	if err := client.Create(context.Background(), ev, prov); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if gotPath != "/calendars/primary/events" {
		t.Fatalf("Create() path = %q, want /calendars/primary/events", gotPath)
	}
	if gotAuth != "Bearer test-token" {
		t.Fatalf("Create() auth header = %q, want bearer token", gotAuth)
	}
	if gotBody["summary"] != "Light workout" {
		t.Fatalf("Create() summary = %v, want Light workout", gotBody["summary"])
	}

	ext, ok := gotBody["extendedProperties"].(map[string]any)
	if !ok {
		t.Fatalf("Create() body missing extendedProperties: %v", gotBody)
	}
	private, ok := ext["private"].(map[string]any)
	if !ok || private["origin"] != "tempo-scheduler" {
		t.Fatalf("Create() provenance not attached: %v", ext)
	}

	start, ok := gotBody["start"].(map[string]any)
	if !ok || start["dateTime"] != "2024-01-01T07:00:00Z" {
		t.Fatalf("Create() start = %v, want 2024-01-01T07:00:00Z", gotBody["start"])
	}
}

func TestCreateNonOKStatusIsError(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "quota"}`, http.StatusForbidden)
	})

	ev := calendar.NewEvent{
		Title: "x",
		Start: time.Now(),
		End:   time.Now().Add(time.Hour),
	}
	if err := client.Create(context.Background(), ev, nil); err == nil {
		t.Fatalf("Create() accepted a 403 response")
	}
}

func TestMoveAndDeleteNotSupported(t *testing.T) {
	client, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected HTTP call for unsupported operation: %s %s", r.Method, r.URL.Path)
	})

	if err := client.Move(context.Background(), "evt-1", time.Now(), time.Now().Add(time.Hour)); !errors.Is(err, calendar.ErrNotSupported) {
		t.Fatalf("Move() error = %v, want ErrNotSupported", err)
	}
	if err := client.Delete(context.Background(), "evt-1"); !errors.Is(err, calendar.ErrNotSupported) {
		t.Fatalf("Delete() error = %v, want ErrNotSupported", err)
	}
}
