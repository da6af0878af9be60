package relay

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthorize_NoTokenConfiguredSkipsAuth(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	ok, status := s.authorize(req)
	if !ok || status != http.StatusOK {
		t.Errorf("authorize() = (%v, %d), want (true, 200)", ok, status)
	}
}

func TestAuthorize_MissingHeaderIsUnauthorized(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "secret")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	ok, status := s.authorize(req)
	if ok || status != http.StatusUnauthorized {
		t.Errorf("authorize() = (%v, %d), want (false, 401)", ok, status)
	}
}

func TestAuthorize_MalformedHeaderIsUnauthorized(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "secret")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "secret")
	ok, status := s.authorize(req)
	if ok || status != http.StatusUnauthorized {
		t.Errorf("authorize() = (%v, %d), want (false, 401)", ok, status)
	}
}

func TestAuthorize_WrongTokenIsForbidden(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "secret")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	ok, status := s.authorize(req)
	if ok || status != http.StatusForbidden {
		t.Errorf("authorize() = (%v, %d), want (false, 403)", ok, status)
	}
}

func TestAuthorize_CorrectTokenIsOK(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "secret")
	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	req.Header.Set("Authorization", "Bearer secret")
	ok, status := s.authorize(req)
	if !ok || status != http.StatusOK {
		t.Errorf("authorize() = (%v, %d), want (true, 200)", ok, status)
	}
}

func TestHandlePublish_DefaultsMissingColorAndPersists(t *testing.T) {
	store := NewSnapshotStore(0)
	s := NewServer(store, "")
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	body, _ := json.Marshal(map[string]any{
		"user":     "alice",
		"snapshot": map[string]any{"sessions": []any{}, "groups": []any{}},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/publish", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	entries := store.GetAll()
	if len(entries) != 1 || entries[0].Color != DefaultColor {
		t.Errorf("expected published entry to default color to %q, got %+v", DefaultColor, entries)
	}
}

func TestHandlePublish_MissingUserIsBadRequest(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "")
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	body, _ := json.Marshal(map[string]any{"snapshot": map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/api/publish", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHandleCombined_RequiresAuthWhenTokenConfigured(t *testing.T) {
	s := NewServer(NewSnapshotStore(0), "secret")
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/combined", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleUsers_ReturnsRoster(t *testing.T) {
	store := NewSnapshotStore(0)
	store.Publish("alice", "#123", nil)
	s := NewServer(store, "")
	mux := http.NewServeMux()
	s.SetupRoutes(mux)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp struct {
		Users []UserSummary `json:"users"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Users) != 1 || resp.Users[0].Name != "alice" {
		t.Errorf("users = %+v, want one entry named alice", resp.Users)
	}
}
