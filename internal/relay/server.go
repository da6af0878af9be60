package relay

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/crystalball/observer/internal/session"
)

// Server is the relay's HTTP surface: publish / combined / users, gated by
// an optional bearer token.
type Server struct {
	store *SnapshotStore
	token string
}

// NewServer returns a Server backed by store. An empty token disables auth
// entirely (spec §4.7: "if no token was configured, authentication is
// skipped").
func NewServer(store *SnapshotStore, token string) *Server {
	return &Server{store: store, token: token}
}

// SetupRoutes registers the relay's handlers on mux.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/publish", s.handlePublish)
	mux.HandleFunc("/api/combined", s.handleCombined)
	mux.HandleFunc("/api/users", s.handleUsers)
}

// authorize implements the three-way auth outcome from spec §4.7: no
// header → 401, malformed header → 401, wrong token → 403, correct or no
// token configured → ok.
func (s *Server) authorize(r *http.Request) (ok bool, status int) {
	if s.token == "" {
		return true, http.StatusOK
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false, http.StatusUnauthorized
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return false, http.StatusUnauthorized
	}
	if strings.TrimPrefix(auth, "Bearer ") != s.token {
		return false, http.StatusForbidden
	}
	return true, http.StatusOK
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request) bool {
	if ok, status := s.authorize(r); !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
		return false
	}
	return true
}

type publishRequest struct {
	User     string            `json:"user"`
	Color    string            `json:"color"`
	Snapshot *session.Snapshot `json:"snapshot"`
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid json body")
		return
	}
	if req.User == "" || req.Snapshot == nil {
		writeBadRequest(w, "user and snapshot are required")
		return
	}

	color := req.Color
	if color == "" {
		color = DefaultColor
	}

	s.store.Publish(req.User, color, req.Snapshot)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCombined(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	combined := Merge(s.store.GetAll())
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(combined); err != nil {
		log.Printf("[relay] encode combined: %v", err)
	}
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	if !s.requireAuth(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{"users": s.store.GetUserList()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("[relay] encode users: %v", err)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
