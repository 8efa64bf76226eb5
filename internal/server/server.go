package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"contentsync/internal/logger"
)

// Runner is the engine surface the operator endpoints drive.
type Runner interface {
	RunOnce(ctx context.Context) (string, error)
	ClearHistory(ctx context.Context) error
}

// History reads the persisted run log and timestamp.
type History interface {
	LastRun(ctx context.Context) (string, time.Time, error)
}

// Pinger reports storage connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the operator-facing HTTP handlers.
type Server struct {
	engine  Runner
	history History
	pinger  Pinger
}

// NewServer creates a Server over the given engine and stores.
func NewServer(engine Runner, history History, pinger Pinger) *Server {
	return &Server{engine: engine, history: history, pinger: pinger}
}

// HealthCheck answers 200 OK when the store is reachable, 503 otherwise.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.pinger.Ping(r.Context()); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("OK"))
}

// RunNow triggers one sync run and returns its summary. The summary is
// intentionally terse; failures of individual records are only in the
// persisted log.
func (s *Server) RunNow(w http.ResponseWriter, r *http.Request) {
	summary, err := s.engine.RunOnce(r.Context())
	if err != nil {
		logger.Log.Errorf("Manual sync failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"summary": summary})
}

// ClearHistory blanks the persisted run log and last-run timestamp.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearHistory(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Write([]byte("OK"))
}

// GetLog returns the persisted log of the last run plus the timestamp of
// the last successful run (empty string when none has completed).
func (s *Server) GetLog(w http.ResponseWriter, r *http.Request) {
	blob, lastRun, err := s.history.LastRun(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := map[string]string{"log": blob, "last_run": ""}
	if !lastRun.IsZero() {
		resp["last_run"] = lastRun.Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
