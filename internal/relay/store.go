// Package relay implements the federation layer: a per-user TTL-expiring
// snapshot store, a pure merge function, and the HTTP surface that fronts
// both.
package relay

import (
	"sync"
	"time"

	"github.com/crystalball/observer/internal/session"
)

// DefaultExpiry is the default staleness window after which a publisher's
// entry is evicted from the store (spec §4.5).
const DefaultExpiry = 30 * time.Second

// Entry is one publisher's last-known snapshot.
type Entry struct {
	User       string
	Color      string
	Snapshot   *session.Snapshot
	ReceivedAt time.Time
}

// UserSummary is the roster shape returned by GET /api/users.
type UserSummary struct {
	Name         string `json:"name"`
	Color        string `json:"color"`
	SessionCount int    `json:"sessionCount"`
	LastSeen     string `json:"lastSeen"`
}

// SnapshotStore is a mapping from user to Entry, upserted on publish and
// lazily expired on read.
type SnapshotStore struct {
	mu      sync.Mutex
	entries map[string]*Entry
	expiry  time.Duration
}

// NewSnapshotStore returns a store that expires entries after expiry. A
// zero expiry uses DefaultExpiry.
func NewSnapshotStore(expiry time.Duration) *SnapshotStore {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &SnapshotStore{
		entries: make(map[string]*Entry),
		expiry:  expiry,
	}
}

// Publish upserts user's entry with a fresh ReceivedAt timestamp. Last
// writer wins per user.
func (s *SnapshotStore) Publish(user, color string, snap *session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[user] = &Entry{
		User:       user,
		Color:      color,
		Snapshot:   snap,
		ReceivedAt: time.Now(),
	}
}

// GetAll returns all non-expired entries, evicting any expired entry it
// encounters along the way.
func (s *SnapshotStore) GetAll() []*Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	out := make([]*Entry, 0, len(s.entries))
	for user, e := range s.entries {
		if now.Sub(e.ReceivedAt) > s.expiry {
			delete(s.entries, user)
			continue
		}
		out = append(out, e)
	}
	return out
}

// GetUserList returns the roster of currently live publishers.
func (s *SnapshotStore) GetUserList() []UserSummary {
	entries := s.GetAll()
	out := make([]UserSummary, 0, len(entries))
	for _, e := range entries {
		count := 0
		if e.Snapshot != nil {
			count = len(e.Snapshot.Sessions)
		}
		out = append(out, UserSummary{
			Name:         e.User,
			Color:        e.Color,
			SessionCount: count,
			LastSeen:     e.ReceivedAt.Format(time.RFC3339),
		})
	}
	return out
}
