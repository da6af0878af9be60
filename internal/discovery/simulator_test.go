package discovery

import (
	"testing"
)

func TestNewSimulator_SeedsOneSessionPerProject(t *testing.T) {
	sim := NewSimulator()
	if len(sim.sessions) != len(simProjects) {
		t.Fatalf("len(sessions) = %d, want %d", len(sim.sessions), len(simProjects))
	}
	seen := make(map[string]bool)
	for _, s := range sim.sessions {
		seen[s.cwd] = true
	}
	for _, proj := range simProjects {
		if !seen[proj] {
			t.Errorf("expected a seeded session for project %q", proj)
		}
	}
}

func TestDiscoverSessions_ReturnsOneRawProcessPerSession(t *testing.T) {
	sim := NewSimulator()
	procs, err := sim.DiscoverSessions()
	if err != nil {
		t.Fatalf("DiscoverSessions: %v", err)
	}
	if len(procs) != len(sim.sessions) {
		t.Fatalf("len(procs) = %d, want %d", len(procs), len(sim.sessions))
	}
	for _, p := range procs {
		if p.CPUPercent < 0 || p.CPUPercent > 100 {
			t.Errorf("pid %d cpu = %v, out of [0, 100]", p.PID, p.CPUPercent)
		}
		if p.Command != "claude" {
			t.Errorf("pid %d command = %q, want claude", p.PID, p.Command)
		}
	}
}

func TestDiscoverSessions_SidecarOnlyOnFlaggedSessions(t *testing.T) {
	sim := NewSimulator()
	procs, _ := sim.DiscoverSessions()

	withSidecar := 0
	for i, p := range procs {
		if sim.sessions[i].sidecar {
			if p.Sidecar == nil {
				t.Errorf("session %d flagged sidecar=true but RawProcess.Sidecar is nil", i)
			} else {
				withSidecar++
			}
		} else if p.Sidecar != nil {
			t.Errorf("session %d flagged sidecar=false but RawProcess.Sidecar is non-nil", i)
		}
	}
	if withSidecar == 0 {
		t.Errorf("expected at least one simulated session to carry inline sidecar context")
	}
}

func TestSidecarFor_ReflectsBehaviourPhaseMapping(t *testing.T) {
	sim := NewSimulator()
	s := &simSession{behaviour: behaviourActive, task: "x", sidecar: true}
	ctx := sim.sidecarFor(s, sim.lastFlip)
	if ctx == nil {
		t.Fatalf("expected non-nil sidecar context")
	}
	if ctx.Phase != simPhaseByBehaviour[behaviourActive] {
		t.Errorf("phase = %q, want %q", ctx.Phase, simPhaseByBehaviour[behaviourActive])
	}
}

func TestCpuFor_StaysWithinBounds(t *testing.T) {
	sim := NewSimulator()
	for _, b := range []behaviour{behaviourActive, behaviourAwaiting, behaviourIdle, behaviourBurst} {
		s := &simSession{behaviour: b, startTime: sim.lastFlip}
		for i := 0; i < 50; i++ {
			cpu := sim.cpuFor(s, sim.lastFlip)
			if cpu < 0 || cpu > 100 {
				t.Fatalf("behaviour %q produced out-of-bounds cpu %v", b, cpu)
			}
		}
	}
}
