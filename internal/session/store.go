package session

import (
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"time"

	"github.com/crystalball/observer/internal/classifier"
)

// Classifier is the subset of classifier.Classifier the Store depends on.
type Classifier interface {
	RecordReading(pid int, cpu float64)
	Classify(in classifier.Input) classifier.State
	Cleanup(livePids map[int]bool)
}

// fromClassifierState maps the Classifier's own four-value State onto the
// wire-level State. The Classifier never emits Blocked — that label is
// applied only by resolveState, from sidecar data.
func fromClassifierState(s classifier.State) State {
	switch s {
	case classifier.Active:
		return Active
	case classifier.Awaiting:
		return Awaiting
	case classifier.Stale:
		return Stale
	default:
		return Idle
	}
}

// SidecarReader is the subset of sidecar.Reader the Store depends on.
type SidecarReader interface {
	ReadAll(targets []MatchTarget) map[int]*SidecarContext
}

// MatchTarget is a session the caller wants sidecar context for, matched
// to sidecar files by Cwd.
type MatchTarget struct {
	PID int
	Cwd string
}

// RawSession is everything the Store needs about one discovered process for
// a single poll tick, folding in discovery.RawProcess's fields plus an
// optional inline sidecar (the Simulator backend's path).
type RawSession struct {
	PID         int
	CPUPercent  float64
	RSSBytes    int64
	TTY         string
	StartTime   time.Time
	Cwd         string
	HasChildren bool
	Sidecar     *SidecarContext
}

// Store ingests raw discoveries every poll tick, drives classification and
// sidecar enrichment, accumulates idle-economics metrics, and publishes an
// immutable Snapshot. A single mutex serializes Update so internal state
// (prevStates, awaitingStart, totalAwaitingMs) is never observed mid-tick.
type Store struct {
	mu sync.Mutex

	classifier Classifier
	sidecar    SidecarReader

	prevStates      map[int]State
	awaitingStart   map[int]time.Time
	totalAwaitingMs float64
	lastPollTime    time.Time

	latest *Snapshot
}

// NewStore returns a Store ready to ingest its first poll tick.
func NewStore(classifier Classifier, sidecar SidecarReader) *Store {
	return &Store{
		classifier:    classifier,
		sidecar:       sidecar,
		prevStates:    make(map[int]State),
		awaitingStart: make(map[int]time.Time),
	}
}

// Latest returns the most recently published snapshot, or nil before the
// first Update.
func (s *Store) Latest() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Update runs one full poll-tick pass: classify, enrich, accumulate
// idle-economics, build groups and metrics, and atomically publish the
// resulting snapshot. It returns the published snapshot.
func (s *Store) Update(raw []RawSession) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	sidecarByPID := s.resolveSidecars(raw)

	livePids := make(map[int]bool, len(raw))
	sessions := make([]Session, 0, len(raw))
	for _, r := range raw {
		livePids[r.PID] = true

		s.classifier.RecordReading(r.PID, r.CPUPercent)
		osState := fromClassifierState(s.classifier.Classify(classifier.Input{
			PID:       r.PID,
			CPU:       r.CPUPercent,
			TTY:       r.TTY,
			StartTime: r.StartTime,
			Now:       now,
		}))

		ctx := sidecarByPID[r.PID]
		state := resolveState(osState, ctx)

		mode := 1
		if ctx != nil {
			mode = 2
		}

		sessions = append(sessions, Session{
			ID:          fmt.Sprintf("claude-%d", r.PID),
			PID:         r.PID,
			Cwd:         r.Cwd,
			CPU:         r.CPUPercent,
			MemMB:       float64(r.RSSBytes) / (1024 * 1024),
			State:       state,
			AgeSeconds:  int64(now.Sub(r.StartTime).Round(time.Second).Seconds()),
			TTY:         r.TTY,
			HasChildren: r.HasChildren,
			Group:       filepath.Base(r.Cwd),
			Mode:        mode,
			Context:     ctx,
		})
	}

	s.classifier.Cleanup(livePids)
	s.accumulateIdleEconomics(sessions, livePids, now)

	groups := buildGroups(sessions)
	metrics := s.buildMetrics(sessions, now)

	snap := &Snapshot{
		Timestamp: now,
		Sessions:  sessions,
		Groups:    groups,
		Metrics:   metrics,
	}
	s.latest = snap
	return snap
}

// resolveSidecars returns sidecar context per PID: rawSessions carrying an
// inline sidecar (the Simulator path) use it directly; all others are
// matched by cwd via the SidecarReader in one batched call.
func (s *Store) resolveSidecars(raw []RawSession) map[int]*SidecarContext {
	result := make(map[int]*SidecarContext, len(raw))

	var targets []MatchTarget
	for _, r := range raw {
		if r.Sidecar != nil {
			result[r.PID] = r.Sidecar
			continue
		}
		targets = append(targets, MatchTarget{PID: r.PID, Cwd: r.Cwd})
	}
	if len(targets) == 0 || s.sidecar == nil {
		return result
	}

	matched := s.sidecar.ReadAll(targets)
	for pid, ctx := range matched {
		result[pid] = ctx
	}
	return result
}

// resolveState implements spec §4.4 step 2: no sidecar keeps osState;
// blocked=true overrides to Blocked; a stale sidecar never overrides an
// idle/stale osState (old context isn't trusted); otherwise osState wins.
func resolveState(osState State, ctx *SidecarContext) State {
	if ctx == nil {
		return osState
	}
	if ctx.Blocked {
		return Blocked
	}
	if ctx.Stale && (osState == Idle || osState == Stale) {
		return osState
	}
	return osState
}

// accumulateIdleEconomics runs the sweep-then-transition algorithm. The
// sweep must happen before transitions are processed: a session that
// leaves "waiting" in this tick still receives credit for the elapsed
// interval during which it was still waiting when the tick began.
func (s *Store) accumulateIdleEconomics(sessions []Session, livePids map[int]bool, now time.Time) {
	if !s.lastPollTime.IsZero() {
		elapsed := float64(now.Sub(s.lastPollTime).Milliseconds())
		for pid := range s.awaitingStart {
			if livePids[pid] {
				s.totalAwaitingMs += elapsed
			}
		}
	}

	currStates := make(map[int]State, len(sessions))
	for _, sess := range sessions {
		currStates[sess.PID] = sess.State

		wasWaiting := s.prevStates[sess.PID].IsWaiting()
		isWaiting := sess.State.IsWaiting()
		switch {
		case isWaiting && !wasWaiting:
			s.awaitingStart[sess.PID] = now
		case !isWaiting && wasWaiting:
			delete(s.awaitingStart, sess.PID)
		}
	}

	for pid := range s.awaitingStart {
		if !livePids[pid] {
			delete(s.awaitingStart, pid)
		}
	}
	for pid := range s.prevStates {
		if !livePids[pid] {
			delete(s.prevStates, pid)
		}
	}

	s.prevStates = currStates
	s.lastPollTime = now
}

// buildMetrics assembles awaitingAgentMinutes, longestWait, and
// blockedCount from the Store's accumulated state and the current
// sessions.
func (s *Store) buildMetrics(sessions []Session, now time.Time) Metrics {
	minutes := math.Round(s.totalAwaitingMs/60000*10) / 10

	var longest *LongestWait
	var longestPID int
	var longestStart time.Time
	for pid, start := range s.awaitingStart {
		if longest == nil || start.Before(longestStart) {
			longestStart = start
			longestPID = pid
			longest = &LongestWait{}
		}
	}
	if longest != nil {
		group, sessionID := "", fmt.Sprintf("claude-%d", longestPID)
		for _, sess := range sessions {
			if sess.PID == longestPID {
				group = sess.Group
				break
			}
		}
		longest.SessionID = sessionID
		longest.Name = displayNameForPID(longestPID)
		longest.Group = group
		longest.Seconds = int64(now.Sub(longestStart).Round(time.Second).Seconds())
	}

	blocked := 0
	for _, sess := range sessions {
		if sess.State == Blocked {
			blocked++
		}
	}

	return Metrics{
		AwaitingAgentMinutes: minutes,
		LongestWait:          longest,
		BlockedCount:         blocked,
	}
}

// buildGroups buckets sessions by the basename of their cwd, preserving the
// order in which each group name was first encountered.
func buildGroups(sessions []Session) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, sess := range sessions {
		idx, ok := index[sess.Group]
		if !ok {
			idx = len(groups)
			index[sess.Group] = idx
			groups = append(groups, Group{
				ID:  sess.Group,
				Cwd: sess.Cwd,
			})
		}
		groups[idx].SessionCount++
		groups[idx].SessionIDs = append(groups[idx].SessionIDs, sess.ID)
	}
	return groups
}
