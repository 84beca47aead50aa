package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/James-C137/tempo-scheduler/internal/config"
	"github.com/James-C137/tempo-scheduler/internal/policy"
	"github.com/James-C137/tempo-scheduler/internal/reconcile"
)

func testServer(auth *config.BasicAuthConfig) *Server {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = auth
	pol := &policy.Model{}
	pol.Normalize()
	return NewServer(cfg, pol)
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
}

func TestReportEndpointBeforeAndAfterRun(t *testing.T) {
	srv := testServer(nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/report = %d, want 200", rec.Code)
	}

	srv.SetReport(&reconcile.Report{RunID: "run-1"}, nil)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	var body struct {
		Report *reconcile.Report `json:"report"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode report response: %v", err)
	}
	if body.Report == nil || body.Report.RunID != "run-1" {
		t.Fatalf("GET /api/report returned %+v, want run-1", body.Report)
	}
}

func TestReportEndpointSurfacesRunError(t *testing.T) {
	srv := testServer(nil)
	srv.SetReport(nil, errors.New("oracle: rate limited"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))

	var body struct {
		RunError string `json:"run_error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode report response: %v", err)
	}
	if body.RunError != "oracle: rate limited" {
		t.Fatalf("run_error = %q, want the last run error", body.RunError)
	}
}

func TestBasicAuthProtectsAPIButNotHealth(t *testing.T) {
	srv := testServer(&config.BasicAuthConfig{Username: "u", Password: "p"})
	h := srv.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/report", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("GET /api/report without credentials = %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health with auth enabled = %d, want 200", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/policy", nil)
	req.SetBasicAuth("u", "p")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/policy with credentials = %d, want 200", rec.Code)
	}
}
