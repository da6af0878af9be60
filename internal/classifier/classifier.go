// Package classifier assigns a session state label from a sliding window of
// CPU readings, TTY attachment, and session age. It owns no data besides the
// per-PID CPU history; everything else is passed in by value. It has no
// dependency on the session package — State is a local type the caller
// (session.Store) maps onto its own wire-level State, keeping the two
// packages free of an import cycle (Store depends on Classifier, not the
// reverse).
package classifier

import (
	"time"
)

// State is the four labels the Classifier can derive on its own. "blocked"
// is not among them — it is only ever applied by SessionStore from sidecar
// data, never by the Classifier.
type State string

const (
	Active   State = "active"
	Awaiting State = "awaiting"
	Idle     State = "idle"
	Stale    State = "stale"
)

const (
	historySize      = 10
	pollInterval     = 2 * time.Second
	activeThreshold  = 10.0
	awaitingCeiling  = 5.0
	quietMin         = 10 * time.Second
	quietMax         = 60 * time.Second
	staleQuietWindow = 30 * time.Minute
	staleCPUCeiling  = 1.0

	// DetachedTTY is the sentinel value used for processes with no
	// controlling terminal.
	DetachedTTY = "detached"
)

// history is a fixed-capacity ring buffer of the last historySize CPU
// readings for one PID, oldest first.
type history struct {
	readings []float64
}

func (h *history) record(cpu float64) {
	h.readings = append(h.readings, cpu)
	if len(h.readings) > historySize {
		h.readings = h.readings[len(h.readings)-historySize:]
	}
}

// Input is everything classify needs about one session at the current poll.
type Input struct {
	PID              int
	CPU              float64
	TTY              string
	StartTime        time.Time
	LastActivityTime time.Time // optional; zero means "estimate from history"
	Now              time.Time
}

// Classifier maintains per-PID CPU history across polls and derives a state
// label. The zero value is ready to use.
type Classifier struct {
	history map[int]*history
}

// New returns a ready-to-use Classifier.
func New() *Classifier {
	return &Classifier{history: make(map[int]*history)}
}

// RecordReading appends cpu to pid's ring buffer, dropping the oldest
// reading once the buffer exceeds historySize entries.
func (c *Classifier) RecordReading(pid int, cpu float64) {
	if c.history == nil {
		c.history = make(map[int]*history)
	}
	h, ok := c.history[pid]
	if !ok {
		h = &history{}
		c.history[pid] = h
	}
	h.record(cpu)
}

// Cleanup drops history for any PID not present in livePids.
func (c *Classifier) Cleanup(livePids map[int]bool) {
	for pid := range c.history {
		if !livePids[pid] {
			delete(c.history, pid)
		}
	}
}

// Classify derives a state from in, priority order stale > active > awaiting
// > idle.
func (c *Classifier) Classify(in Input) State {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	h := c.history[in.PID]
	var readings []float64
	if h != nil {
		readings = h.readings
	}

	quiet := quietDuration(in, readings, now)

	if in.TTY == DetachedTTY {
		return Stale
	}
	if quiet >= staleQuietWindow && allBelow(readings, staleCPUCeiling) {
		return Stale
	}

	if tailActive(readings) {
		return Active
	}

	if in.CPU < awaitingCeiling && quiet >= quietMin && quiet <= quietMax {
		return Awaiting
	}

	return Idle
}

// tailActive reports whether the most-recent tail of readings contains at
// least two consecutive readings strictly above activeThreshold.
func tailActive(readings []float64) bool {
	streak := 0
	for i := len(readings) - 1; i >= 0; i-- {
		if readings[i] > activeThreshold {
			streak++
			if streak >= 2 {
				return true
			}
			continue
		}
		break
	}
	return false
}

func allBelow(readings []float64, ceiling float64) bool {
	if len(readings) == 0 {
		return false
	}
	for _, r := range readings {
		if r >= ceiling {
			return false
		}
	}
	return true
}

// quietDuration returns how long the session has been quiet (CPU below the
// awaiting ceiling). If LastActivityTime is supplied it is used directly;
// otherwise it is estimated by walking the history newest-to-oldest for the
// first reading at or above awaitingCeiling, counting each step as one poll
// interval, falling back to StartTime if no such reading exists.
func quietDuration(in Input, readings []float64, now time.Time) time.Duration {
	if !in.LastActivityTime.IsZero() {
		return now.Sub(in.LastActivityTime)
	}

	for i := len(readings) - 1; i >= 0; i-- {
		if readings[i] >= awaitingCeiling {
			stepsAgo := len(readings) - 1 - i
			return time.Duration(stepsAgo) * pollInterval
		}
	}

	if in.StartTime.IsZero() {
		return 0
	}
	return now.Sub(in.StartTime)
}
