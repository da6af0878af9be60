// Package localserver exposes the observer's latest snapshot and a small
// client-performance ring buffer over HTTP, in the shape the 3D client
// consumes (out of scope here — we specify only the contract).
package localserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/crystalball/observer/internal/session"
)

const perfHistorySize = 60

// SnapshotSource is the subset of session.Store the server depends on.
type SnapshotSource interface {
	Latest() *session.Snapshot
}

// Server serves /api/sessions and /api/perf.
type Server struct {
	store SnapshotSource

	perfMu      sync.Mutex
	perfLatest  any
	perfHistory []any
}

// New returns a Server backed by store.
func New(store SnapshotSource) *Server {
	return &Server{store: store}
}

// SetupRoutes registers the server's handlers on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/perf", s.handlePerf)
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Latest()
	w.Header().Set("Content-Type", "application/json")
	if snap == nil {
		json.NewEncoder(w).Encode(session.Snapshot{
			Sessions: []session.Session{},
			Groups:   []session.Group{},
		})
		return
	}
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Printf("[localserver] encode snapshot: %v", err)
	}
}

func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handlePerfPost(w, r)
	case http.MethodGet:
		s.handlePerfGet(w)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handlePerfPost(w http.ResponseWriter, r *http.Request) {
	var payload any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid json body"})
		return
	}

	s.perfMu.Lock()
	s.perfLatest = payload
	s.perfHistory = append(s.perfHistory, payload)
	if len(s.perfHistory) > perfHistorySize {
		s.perfHistory = s.perfHistory[len(s.perfHistory)-perfHistorySize:]
	}
	s.perfMu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePerfGet(w http.ResponseWriter) {
	s.perfMu.Lock()
	resp := map[string]any{
		"latest":  s.perfLatest,
		"history": s.perfHistory,
	}
	s.perfMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[localserver] encode perf: %v", err)
	}
}
