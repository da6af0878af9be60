package sidecar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/crystalball/observer/internal/session"
)

func validPayload(now time.Time) map[string]any {
	return map[string]any{
		"task":       "refactor auth middleware",
		"phase":      "coding",
		"blocked":    false,
		"updated_at": now.Format(time.RFC3339),
		"cwd":        "/home/dev/proj",
	}
}

func TestValidateSidecar_AllSixPhasesValidate(t *testing.T) {
	now := time.Now()
	phases := []string{"planning", "researching", "coding", "testing", "reviewing", "idle"}
	for _, phase := range phases {
		raw := validPayload(now)
		raw["phase"] = phase
		ok, ctx := ValidateSidecar(raw, now)
		assert.True(t, ok, "phase %q should validate", phase)
		if assert.NotNil(t, ctx) {
			assert.Equal(t, phase, string(ctx.Phase))
		}
	}
}

func TestValidateSidecar_MutatingAnyRequiredFieldInvalidates(t *testing.T) {
	now := time.Now()

	cases := map[string]func(map[string]any){
		"empty task":        func(r map[string]any) { r["task"] = "" },
		"missing task":      func(r map[string]any) { delete(r, "task") },
		"invalid phase":     func(r map[string]any) { r["phase"] = "sleeping" },
		"missing phase":     func(r map[string]any) { delete(r, "phase") },
		"malformed time":    func(r map[string]any) { r["updated_at"] = "not-a-time" },
		"missing updated_at": func(r map[string]any) { delete(r, "updated_at") },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			raw := validPayload(now)
			mutate(raw)
			ok, ctx := ValidateSidecar(raw, now)
			assert.False(t, ok, name)
			assert.Nil(t, ctx, name)
		})
	}
}

func TestValidateSidecar_BlockedTruthyCoercion(t *testing.T) {
	now := time.Now()

	cases := []struct {
		value any
		want  bool
	}{
		{true, true},
		{false, false},
		{"yes", true},
		{"false", false},
		{"", false},
		{1.0, true},
		{0.0, false},
		{nil, false},
	}

	for _, tc := range cases {
		raw := validPayload(now)
		raw["blocked"] = tc.value
		ok, ctx := ValidateSidecar(raw, now)
		assert.True(t, ok)
		if assert.NotNil(t, ctx) {
			assert.Equal(t, tc.want, ctx.Blocked, "blocked=%v", tc.value)
		}
	}
}

func TestValidateSidecar_StaleWhenOlderThanTenMinutes(t *testing.T) {
	now := time.Now()

	fresh := validPayload(now)
	fresh["updated_at"] = now.Add(-9 * time.Minute).Format(time.RFC3339)
	_, ctx := ValidateSidecar(fresh, now)
	assert.False(t, ctx.Stale)

	stale := validPayload(now)
	stale["updated_at"] = now.Add(-11 * time.Minute).Format(time.RFC3339)
	_, ctx = ValidateSidecar(stale, now)
	assert.True(t, ctx.Stale)
}

func writeJSON(t *testing.T, path string, body map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}

func TestReadAll_ScansDirIgnoringTmpAndNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()

	matched := validPayload(now)
	matched["cwd"] = "/home/dev/proj"
	writeJSON(t, filepath.Join(dir, "session-a.json"), matched)

	// A .tmp file, even with a fully valid payload and matching cwd, must
	// never be picked up — it represents a write still in flight.
	tmpInProgress := validPayload(now)
	tmpInProgress["cwd"] = "/home/dev/other"
	writeJSON(t, filepath.Join(dir, "session-b.json.tmp"), tmpInProgress)

	// A non-JSON file in the same directory is ignored outright.
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not json"), 0644); err != nil {
		t.Fatalf("write README: %v", err)
	}

	// A malformed JSON file must not abort the whole scan.
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not valid"), 0644); err != nil {
		t.Fatalf("write broken.json: %v", err)
	}

	r := New(dir)
	result := r.ReadAll([]session.MatchTarget{
		{PID: 1, Cwd: "/home/dev/proj"},
		{PID: 2, Cwd: "/home/dev/other"},
		{PID: 3, Cwd: "/no/such/cwd"},
	})

	if len(result) != 1 {
		t.Fatalf("len(result) = %d, want 1 (only the .json file's cwd should match)", len(result))
	}
	ctx, ok := result[1]
	if !ok {
		t.Fatalf("expected pid 1 (matching /home/dev/proj) to be matched")
	}
	if ctx.Task != matched["task"] {
		t.Errorf("task = %q, want %q", ctx.Task, matched["task"])
	}
	if _, ok := result[2]; ok {
		t.Errorf("pid 2 matched the .tmp file's cwd, but .tmp files must be ignored")
	}
	if _, ok := result[3]; ok {
		t.Errorf("pid 3 has no matching sidecar file and should not appear")
	}
}

func TestReadAll_MissingDirectoryYieldsEmptyMap(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "does-not-exist"))
	result := r.ReadAll([]session.MatchTarget{{PID: 1, Cwd: "/p"}})
	if len(result) != 0 {
		t.Errorf("expected an empty map for a missing sidecar directory, got %v", result)
	}
}
