// Package session holds the wire-level types the observer publishes: Session,
// Group, Metrics, and the Snapshot that bundles them for a single poll tick.
package session

import "time"

// State is the classification assigned to an observed session.
type State string

const (
	Active   State = "active"
	Awaiting State = "awaiting"
	Idle     State = "idle"
	Stale    State = "stale"
	Blocked  State = "blocked"
)

// IsWaiting reports whether s counts toward idle-economics "waiting" time.
func (s State) IsWaiting() bool {
	return s == Awaiting || s == Blocked
}

// Phase is the sidecar-reported work phase of an observed session.
type Phase string

const (
	PhasePlanning    Phase = "planning"
	PhaseResearching Phase = "researching"
	PhaseCoding      Phase = "coding"
	PhaseTesting     Phase = "testing"
	PhaseReviewing   Phase = "reviewing"
	PhaseIdle        Phase = "idle"
)

// ValidPhases enumerates the closed set of sidecar phase values.
var ValidPhases = map[Phase]bool{
	PhasePlanning:    true,
	PhaseResearching: true,
	PhaseCoding:      true,
	PhaseTesting:     true,
	PhaseReviewing:   true,
	PhaseIdle:        true,
}

// SidecarContext is the validated out-of-band context a session may write
// about itself to the sidecar directory.
type SidecarContext struct {
	Task    string  `json:"task"`
	Phase   Phase   `json:"phase"`
	Blocked bool    `json:"blocked"`
	Detail  *string `json:"detail"`
	Stale   bool    `json:"stale"`
}

// Session is a single observed AI-coding-assistant process, classified and
// enriched with any matching sidecar context.
type Session struct {
	ID          string          `json:"id"`
	PID         int             `json:"pid"`
	Cwd         string          `json:"cwd"`
	CPU         float64         `json:"cpu"`
	MemMB       float64         `json:"mem"`
	State       State           `json:"state"`
	AgeSeconds  int64           `json:"age_seconds"`
	TTY         string          `json:"tty"`
	HasChildren bool            `json:"has_children"`
	Group       string          `json:"group"`
	Mode        int             `json:"mode"`
	Context     *SidecarContext `json:"context"`
}

// Group buckets sessions sharing the basename of their working directory.
type Group struct {
	ID           string   `json:"id"`
	Cwd          string   `json:"cwd"`
	SessionCount int      `json:"session_count"`
	SessionIDs   []string `json:"session_ids"`
}

// LongestWait describes the currently-awaiting (or blocked) session that has
// been waiting the longest.
type LongestWait struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Seconds   int64  `json:"seconds"`
}

// Metrics are the aggregate idle-economics figures for a snapshot.
type Metrics struct {
	AwaitingAgentMinutes float64      `json:"awaitingAgentMinutes"`
	LongestWait          *LongestWait `json:"longestWait"`
	BlockedCount         int          `json:"blockedCount"`
}

// Snapshot is the immutable, whole-state document published per poll tick.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	Sessions  []Session `json:"sessions"`
	Groups    []Group   `json:"groups"`
	Metrics   Metrics   `json:"metrics"`
}
