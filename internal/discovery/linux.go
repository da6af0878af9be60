//go:build linux

package discovery

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"
)

const maxPsOutputBytes = 10 * 1024 * 1024

// Linux discovers candidate processes via `ps` and resolves working
// directories by reading the /proc/<pid>/cwd symlink.
type Linux struct{}

// NewLinux returns a Linux Backend.
func NewLinux() *Linux { return &Linux{} }

// DiscoverSessions implements Backend.
func (l *Linux) DiscoverSessions() ([]RawProcess, error) {
	out, err := runPS()
	if err != nil {
		log.Printf("[discovery] ps failed: %v", err)
		return nil, err
	}

	rows := parsePsOutput(out, "?")
	candidates := claudeCandidateRows(rows)
	cwdByPID := resolveCwds(candidates)
	return filterClaudeProcesses(rows, cwdByPID), nil
}

func runPS() (string, error) {
	cmd := exec.Command("ps", "axo", "pid,ppid,pcpu,rss,tty,lstart,command")
	out, err := cappedOutput(cmd, maxPsOutputBytes)
	if err != nil {
		return "", fmt.Errorf("ps: %w", err)
	}
	return out, nil
}

// resolveCwds reads /proc/<pid>/cwd for each candidate row in parallel. A
// per-PID failure (permission denied, process vanished) yields no entry —
// it is never fatal to the overall discovery pass. Callers pass only the
// Claude-matched candidates, not the full host process list, so this fans
// out at most a handful of goroutines per poll tick rather than one per
// process on the box.
func resolveCwds(rows []parsedPsLine) map[int]string {
	result := make(map[int]string, len(rows))
	var mu sync.Mutex
	var eg errgroup.Group
	for _, r := range rows {
		pid := r.pid
		eg.Go(func() error {
			link, err := os.Readlink("/proc/" + strconv.Itoa(pid) + "/cwd")
			if err != nil {
				return nil
			}
			mu.Lock()
			result[pid] = link
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()
	return result
}
