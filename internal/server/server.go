package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ogulcanaydogan/context-guardian/pkg/model"
	"github.com/ogulcanaydogan/context-guardian/pkg/monitor"
	"github.com/ogulcanaydogan/context-guardian/pkg/storage"
)

// Server provides a read-only status API over monitored sessions.
type Server struct {
	monitor *monitor.Monitor
	mux     *http.ServeMux
	logger  *slog.Logger
}

// NewServer creates an API server.
func NewServer(m *monitor.Monitor, logger *slog.Logger) *Server {
	s := &Server{
		monitor: m,
		mux:     http.NewServeMux(),
		logger:  logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleSession)
}

// Handler returns the HTTP handler for this server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	states, err := s.monitor.Sessions(ctx)
	if err != nil {
		s.logger.Error("list sessions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if states == nil {
		states = []model.SessionAlertState{}
	}

	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	id := r.PathValue("id")
	status, err := s.monitor.Inspect(ctx, id)
	switch {
	case errors.Is(err, storage.ErrInvalidSessionID):
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case err != nil:
		s.logger.Error("inspect session", "session", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
