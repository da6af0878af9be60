package relay

import (
	"testing"
	"time"

	"github.com/crystalball/observer/internal/session"
)

func TestSnapshotStore_EntryVisibleBeforeExpiry(t *testing.T) {
	store := NewSnapshotStore(30 * time.Second)
	store.Publish("alice", "#123456", &session.Snapshot{})

	entries := store.GetAll()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if entries[0].User != "alice" {
		t.Errorf("user = %q, want alice", entries[0].User)
	}
}

func TestSnapshotStore_EntryExpiresAfterTTL(t *testing.T) {
	store := NewSnapshotStore(30 * time.Second)
	store.Publish("alice", "#123456", &session.Snapshot{})

	// Backdate the entry past its expiry window.
	store.entries["alice"].ReceivedAt = time.Now().Add(-31 * time.Second)

	entries := store.GetAll()
	if len(entries) != 0 {
		t.Fatalf("len(entries) = %d, want 0 (entry should have expired)", len(entries))
	}
	if _, ok := store.entries["alice"]; ok {
		t.Errorf("expired entry should be evicted from the store, not just hidden")
	}
}

func TestSnapshotStore_PublishIsLastWriterWinsPerUser(t *testing.T) {
	store := NewSnapshotStore(30 * time.Second)
	snap1 := &session.Snapshot{Sessions: []session.Session{{ID: "a"}}}
	snap2 := &session.Snapshot{Sessions: []session.Session{{ID: "a"}, {ID: "b"}}}

	store.Publish("alice", "#111", snap1)
	store.Publish("alice", "#222", snap2)

	entries := store.GetAll()
	if len(entries) != 1 {
		t.Fatalf("len(entries) = %d, want 1", len(entries))
	}
	if len(entries[0].Snapshot.Sessions) != 2 {
		t.Errorf("expected the second publish to win, got %d sessions", len(entries[0].Snapshot.Sessions))
	}
	if entries[0].Color != "#222" {
		t.Errorf("color = %q, want %q", entries[0].Color, "#222")
	}
}

func TestSnapshotStore_GetUserListReportsSessionCounts(t *testing.T) {
	store := NewSnapshotStore(30 * time.Second)
	store.Publish("alice", "#111", &session.Snapshot{Sessions: []session.Session{{ID: "a"}, {ID: "b"}}})

	list := store.GetUserList()
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	if list[0].SessionCount != 2 {
		t.Errorf("sessionCount = %d, want 2", list[0].SessionCount)
	}
}

func TestNewSnapshotStore_ZeroExpiryUsesDefault(t *testing.T) {
	store := NewSnapshotStore(0)
	if store.expiry != DefaultExpiry {
		t.Errorf("expiry = %v, want default %v", store.expiry, DefaultExpiry)
	}
}
