// Package sidecar reads and validates the out-of-band JSON context files
// observed processes write about themselves to a shared directory.
package sidecar

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crystalball/observer/internal/session"
)

const staleAfter = 10 * time.Minute

// DefaultDir returns the sidecar directory, honoring CRYSTAL_BALL_DIR when
// set and falling back to ~/.crystal-ball/sessions.
func DefaultDir() string {
	if dir := os.Getenv("CRYSTAL_BALL_DIR"); dir != "" {
		return filepath.Join(dir, "sessions")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".crystal-ball", "sessions")
	}
	return filepath.Join(home, ".crystal-ball", "sessions")
}

// Reader enumerates the sidecar directory and matches validated contexts to
// discovered sessions by working directory.
type Reader struct {
	dir string
}

// New returns a Reader over dir. An empty dir resolves DefaultDir() lazily
// on each read, picking up CRYSTAL_BALL_DIR changes at runtime.
func New(dir string) *Reader {
	return &Reader{dir: dir}
}

func (r *Reader) resolveDir() string {
	if r.dir != "" {
		return r.dir
	}
	return DefaultDir()
}

// ValidateSidecar parses a decoded JSON object into a SidecarContext. It
// returns (false, nil) for any structurally invalid payload without logging
// — parse errors are a silent, expected occurrence on the hot path (spec
// §7: "sidecar validation returns {false, null} without logging").
func ValidateSidecar(raw map[string]any, now time.Time) (bool, *session.SidecarContext) {
	task, _ := raw["task"].(string)
	if task == "" {
		return false, nil
	}

	phaseStr, _ := raw["phase"].(string)
	phase := session.Phase(phaseStr)
	if !session.ValidPhases[phase] {
		return false, nil
	}

	updatedRaw, _ := raw["updated_at"].(string)
	updatedAt, err := parseTimestamp(updatedRaw)
	if err != nil {
		return false, nil
	}

	var detail *string
	if d, ok := raw["detail"].(string); ok {
		detail = &d
	}

	return true, &session.SidecarContext{
		Task:    task,
		Phase:   phase,
		Blocked: truthy(raw["blocked"]),
		Detail:  detail,
		Stale:   now.Sub(updatedAt) > staleAfter,
	}
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// truthy coerces an arbitrary JSON-decoded value into a boolean using the
// same loose rules the observed processes' own JSON marshaling allows:
// bool as-is, non-zero numbers, and non-empty strings other than "false".
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "false"
	default:
		return false
	}
}

// ReadAll enumerates the sidecar directory, validates every .json file in
// parallel (skipping .tmp files), and returns a map of PID to context for
// every target whose Cwd matches a validated sidecar's Cwd. A missing
// directory yields an empty map, not an error.
func (r *Reader) ReadAll(targets []session.MatchTarget) map[int]*session.SidecarContext {
	dir := r.resolveDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		return map[int]*session.SidecarContext{}
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".tmp") || !strings.HasSuffix(name, ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}

	byCwd := make(map[string]*session.SidecarContext, len(paths))
	var mu sync.Mutex
	var eg errgroup.Group
	now := time.Now()
	for _, p := range paths {
		p := p
		eg.Go(func() error {
			ctx, cwd, ok := r.readOne(p, now)
			if !ok {
				return nil
			}
			mu.Lock()
			byCwd[cwd] = ctx
			mu.Unlock()
			return nil
		})
	}
	_ = eg.Wait()

	result := make(map[int]*session.SidecarContext, len(targets))
	for _, t := range targets {
		if ctx, ok := byCwd[t.Cwd]; ok {
			result[t.PID] = ctx
		}
	}
	return result
}

// readOne reads, parses, and validates one sidecar file. It returns
// ok=false for any transient I/O failure (file vanished between readdir and
// open — non-fatal per spec §5) or validation failure.
func (r *Reader) readOne(path string, now time.Time) (*session.SidecarContext, string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[sidecar] read %s: %v", path, err)
		}
		return nil, "", false
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, "", false
	}

	ok, ctx := ValidateSidecar(raw, now)
	if !ok {
		return nil, "", false
	}

	cwd, _ := raw["cwd"].(string)
	return ctx, cwd, true
}
