// Package web serves the daemon's status API: health, the last run
// report, and the effective policy. Read-only; mutations only ever
// happen through the pipeline.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/James-C137/tempo-scheduler/internal/config"
	appLog "github.com/James-C137/tempo-scheduler/internal/log"
	"github.com/James-C137/tempo-scheduler/internal/policy"
	"github.com/James-C137/tempo-scheduler/internal/reconcile"
)

// Server provides HTTP access to the daemon's last run.
type Server struct {
	cfg    *config.Config
	policy *policy.Model
	mux    *http.ServeMux

	reportMu   sync.RWMutex
	lastReport *reconcile.Report
	lastErr    string
}

// NewServer constructs a Server.
func NewServer(cfg *config.Config, pol *policy.Model) *Server {
	s := &Server{
		cfg:    cfg,
		policy: pol,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// SetReport records the outcome of the most recent run. Called by the
// daemon loop after every pipeline pass.
func (s *Server) SetReport(r *reconcile.Report, runErr error) {
	s.reportMu.Lock()
	defer s.reportMu.Unlock()
	s.lastReport = r
	if runErr != nil {
		s.lastErr = runErr.Error()
	} else {
		s.lastErr = ""
	}
}

// Handler returns the http.Handler for this server, with basic auth
// applied when configured.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// ListenAndServe runs the server until ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	appLog.Info("status API listening", "listen", s.cfg.Listen)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/report", s.handleReport)
	s.mux.HandleFunc("/api/policy", s.handlePolicy)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.reportMu.RLock()
	report := s.lastReport
	lastErr := s.lastErr
	s.reportMu.RUnlock()

	if report == nil && lastErr == "" {
		writeJSON(w, http.StatusOK, map[string]any{"report": nil})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report":    report,
		"run_error": lastErr,
	})
}

func (s *Server) handlePolicy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.policy)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("web: failed to encode response", err)
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
// Empty username or password is treated as disabled.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware protects all endpoints except /health.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(s.cfg.BasicAuth.Username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(s.cfg.BasicAuth.Password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="tempo"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}
