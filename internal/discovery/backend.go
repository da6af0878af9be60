// Package discovery enumerates candidate AI-coding-assistant processes on
// the host. Backend is a small polymorphic interface over a single
// operation; the four variants (Simulator, MacOS, Linux, Stub) are selected
// once at startup, never per call.
package discovery

import (
	"runtime"
	"time"

	"github.com/crystalball/observer/internal/session"
)

// RawProcess is a single candidate process as reported by a Backend, before
// classification or sidecar enrichment.
type RawProcess struct {
	PID         int
	PPID        int
	CPUPercent  float64
	RSSBytes    int64
	TTY         string
	StartTime   time.Time
	Command     string
	Cwd         string
	HasChildren bool

	// Sidecar is non-nil only for backends that can report context
	// inline (the Simulator); real backends leave this nil and rely on
	// SidecarReader to match files by cwd.
	Sidecar *session.SidecarContext
}

// Backend discovers candidate processes on the host.
type Backend interface {
	DiscoverSessions() ([]RawProcess, error)
}

// Config controls backend selection. Simulate wins unconditionally; absent
// that, the host OS decides; absent a supported OS, Stub is used.
type Config struct {
	Simulate bool
}

// Select returns the Backend implied by cfg and the host OS. It never
// returns nil.
func Select(cfg Config) Backend {
	if cfg.Simulate {
		return NewSimulator()
	}
	switch runtime.GOOS {
	case "darwin":
		return NewMacOS()
	case "linux":
		return NewLinux()
	default:
		return Stub{}
	}
}

// Stub is a Backend that always reports no candidate processes. It is
// selected on any host OS without a dedicated backend.
type Stub struct{}

// DiscoverSessions implements Backend.
func (Stub) DiscoverSessions() ([]RawProcess, error) {
	return nil, nil
}
