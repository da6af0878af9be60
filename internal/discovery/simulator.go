package discovery

import (
	"math"
	"math/rand"
	"time"

	"github.com/crystalball/observer/internal/session"
)

// behaviour drives a simulated session's CPU curve.
type behaviour string

const (
	behaviourActive  behaviour = "active"
	behaviourAwaiting behaviour = "awaiting"
	behaviourIdle    behaviour = "idle"
	behaviourBurst   behaviour = "burst"
)

// behaviourProfile parameterizes the sine-wave CPU curve for one behaviour.
type behaviourProfile struct {
	baseMin, baseMax float64
	period           time.Duration
	spikeChance      float64
}

var behaviourProfiles = map[behaviour]behaviourProfile{
	behaviourActive:   {baseMin: 20, baseMax: 70, period: 20 * time.Second, spikeChance: 0.10},
	behaviourAwaiting: {baseMin: 0, baseMax: 3, period: 45 * time.Second, spikeChance: 0.02},
	behaviourIdle:     {baseMin: 0, baseMax: 1, period: 90 * time.Second, spikeChance: 0.01},
	behaviourBurst:    {baseMin: 5, baseMax: 90, period: 8 * time.Second, spikeChance: 0.25},
}

// simProjects are the hard-coded project groups the simulator populates with
// sessions.
var simProjects = []string{
	"/home/dev/apps/dashboard",
	"/home/dev/apps/api-gateway",
	"/home/dev/services/billing",
	"/home/dev/tools/cli",
}

type simSession struct {
	pid        int
	cwd        string
	behaviour  behaviour
	startTime  time.Time
	tty        string
	phaseAngle float64 // radians offset, randomized per session
	task       string
	sidecar    bool // whether this session reports inline sidecar context
	blocked    bool
}

var simTasks = []string{
	"refactor auth middleware",
	"write integration tests",
	"investigate flaky CI job",
	"add pagination to API",
}

var simPhaseByBehaviour = map[behaviour]session.Phase{
	behaviourActive:   session.PhaseCoding,
	behaviourAwaiting: session.PhaseReviewing,
	behaviourIdle:     session.PhaseIdle,
	behaviourBurst:    session.PhaseTesting,
}

// Simulator is a testing-aid Backend that maintains an in-memory population
// of fake sessions with deterministic-but-varying CPU curves. It must only
// be constructed via NewSimulator and wired in by discovery.Select when
// Config.Simulate is true — never loaded in a production deployment.
type Simulator struct {
	rng          *rand.Rand
	sessions     []*simSession
	nextPID      int
	lastFlip     time.Time
	lastChurn    time.Time
	flipInterval time.Duration
	churnInterval time.Duration
}

// NewSimulator seeds a fixed population across the hard-coded project
// groups and returns a ready-to-poll Simulator.
func NewSimulator() *Simulator {
	s := &Simulator{
		rng:     rand.New(rand.NewSource(1)),
		nextPID: 10000,
	}
	now := time.Now()
	s.lastFlip = now
	s.lastChurn = now
	s.flipInterval = s.randDuration(30*time.Second, 60*time.Second)
	s.churnInterval = s.randDuration(120*time.Second, 180*time.Second)

	behaviours := []behaviour{behaviourActive, behaviourAwaiting, behaviourIdle, behaviourBurst}
	for i, proj := range simProjects {
		b := behaviours[i%len(behaviours)]
		s.sessions = append(s.sessions, &simSession{
			pid:        s.allocPID(),
			cwd:        proj,
			behaviour:  b,
			startTime:  now.Add(-time.Duration(s.rng.Intn(3600)) * time.Second),
			tty:        "pts/0",
			phaseAngle: s.rng.Float64() * 2 * math.Pi,
			task:       simTasks[i%len(simTasks)],
			sidecar:    i%2 == 0,
			blocked:    b == behaviourBurst && i == 0,
		})
	}
	return s
}

func (s *Simulator) allocPID() int {
	s.nextPID++
	return s.nextPID
}

func (s *Simulator) randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	delta := int64(max - min)
	return min + time.Duration(s.rng.Int63n(delta))
}

// DiscoverSessions implements Backend. Each call may flip one session's
// behaviour or churn (remove + replace) a session before reporting the
// current population's CPU curve at the current time.
func (s *Simulator) DiscoverSessions() ([]RawProcess, error) {
	now := time.Now()

	if len(s.sessions) > 0 && now.Sub(s.lastFlip) >= s.flipInterval {
		s.flipOne(now)
		s.lastFlip = now
		s.flipInterval = s.randDuration(30*time.Second, 60*time.Second)
	}
	if len(s.sessions) > 0 && now.Sub(s.lastChurn) >= s.churnInterval {
		s.churnOne(now)
		s.lastChurn = now
		s.churnInterval = s.randDuration(120*time.Second, 180*time.Second)
	}

	out := make([]RawProcess, 0, len(s.sessions))
	for _, sim := range s.sessions {
		out = append(out, RawProcess{
			PID:         sim.pid,
			PPID:        1,
			CPUPercent:  s.cpuFor(sim, now),
			RSSBytes:    int64(150+s.rng.Intn(350)) * 1024 * 1024,
			TTY:         sim.tty,
			StartTime:   sim.startTime,
			Command:     "claude",
			Cwd:         sim.cwd,
			HasChildren: false,
			Sidecar:     s.sidecarFor(sim, now),
		})
	}
	return out, nil
}

// sidecarFor returns inline sidecar context for sessions flagged to carry
// one, modeling the out-of-band context a real process would write to its
// sidecar file. Sessions not flagged omit it, exercising the mode=1 path.
func (s *Simulator) sidecarFor(sim *simSession, now time.Time) *session.SidecarContext {
	if !sim.sidecar {
		return nil
	}
	return &session.SidecarContext{
		Task:    sim.task,
		Phase:   simPhaseByBehaviour[sim.behaviour],
		Blocked: sim.blocked,
		Stale:   false,
	}
}

func (s *Simulator) cpuFor(sim *simSession, now time.Time) float64 {
	profile := behaviourProfiles[sim.behaviour]
	elapsed := now.Sub(sim.startTime).Seconds()
	cycle := math.Sin(elapsed/profile.period.Seconds()*2*math.Pi + sim.phaseAngle)
	base := profile.baseMin + (cycle+1)/2*(profile.baseMax-profile.baseMin)

	if s.rng.Float64() < profile.spikeChance {
		base += s.rng.Float64() * (100 - base)
	}
	if base < 0 {
		base = 0
	}
	if base > 100 {
		base = 100
	}
	return base
}

func (s *Simulator) flipOne(now time.Time) {
	idx := s.rng.Intn(len(s.sessions))
	behaviours := []behaviour{behaviourActive, behaviourAwaiting, behaviourIdle, behaviourBurst}
	s.sessions[idx].behaviour = behaviours[s.rng.Intn(len(behaviours))]
	s.sessions[idx].phaseAngle = s.rng.Float64() * 2 * math.Pi
}

func (s *Simulator) churnOne(now time.Time) {
	idx := s.rng.Intn(len(s.sessions))
	group := s.sessions[idx].cwd
	behaviours := []behaviour{behaviourActive, behaviourAwaiting, behaviourIdle, behaviourBurst}
	b := behaviours[s.rng.Intn(len(behaviours))]
	s.sessions[idx] = &simSession{
		pid:        s.allocPID(),
		cwd:        group,
		behaviour:  b,
		startTime:  now,
		tty:        "pts/0",
		phaseAngle: s.rng.Float64() * 2 * math.Pi,
		task:       simTasks[s.rng.Intn(len(simTasks))],
		sidecar:    s.rng.Float64() < 0.5,
	}
}
