package discovery

import (
	"strconv"
	"strings"
	"time"
)

// psLineFields is the minimum field count a valid `ps axo
// pid,ppid,pcpu,rss,tty,lstart,command` line must split into: pid, ppid,
// pcpu, rss, tty (5), the five lstart tokens (5), and at least one command
// token (1).
const psLineFields = 11

// claudeMatchers are the command substrings that identify a candidate
// process. "claude" alone must match the whole command, not a substring.
var claudeMatchers = []string{"/claude", "@anthropic/claude-code", "claude-code"}

// isClaudeCommand reports whether command identifies a Claude Code process.
func isClaudeCommand(command string) bool {
	if command == "claude" {
		return true
	}
	for _, m := range claudeMatchers {
		if strings.Contains(command, m) {
			return true
		}
	}
	return false
}

// parsedPsLine is one successfully parsed `ps` data row, before cwd
// resolution and hasChildren computation.
type parsedPsLine struct {
	pid        int
	ppid       int
	cpuPercent float64
	rssKB      int64
	tty        string
	startTime  time.Time
	command    string
}

// parsePsOutput splits raw `ps` output into parsed rows, skipping the
// header line and any line that fails to parse. detachedToken is "??" on
// macOS or "?" on Linux.
func parsePsOutput(raw string, detachedToken string) []parsedPsLine {
	lines := strings.Split(raw, "\n")
	if len(lines) > 0 {
		lines = lines[1:] // header
	}

	var out []parsedPsLine
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if p, ok := parsePsLine(line, detachedToken); ok {
			out = append(out, p)
		}
	}
	return out
}

func parsePsLine(line string, detachedToken string) (parsedPsLine, bool) {
	fields := strings.Fields(line)
	if len(fields) < psLineFields {
		return parsedPsLine{}, false
	}

	pid, err := strconv.Atoi(fields[0])
	if err != nil {
		return parsedPsLine{}, false
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return parsedPsLine{}, false
	}
	cpu, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return parsedPsLine{}, false
	}
	rssKB, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return parsedPsLine{}, false
	}

	tty := fields[4]
	if tty == detachedToken {
		tty = "detached"
	}

	startTime, ok := parseLstart(fields[5:10])
	if !ok {
		return parsedPsLine{}, false
	}

	command := strings.Join(fields[10:], " ")

	return parsedPsLine{
		pid:        pid,
		ppid:       ppid,
		cpuPercent: cpu,
		rssKB:      rssKB,
		tty:        tty,
		startTime:  startTime,
		command:    command,
	}, true
}

// lstartLayout matches `ps -o lstart`'s fixed five-token format, e.g.
// "Thu Feb  6 14:30:00 2026".
const lstartLayout = "Mon Jan _2 15:04:05 2006"

func parseLstart(tokens []string) (time.Time, bool) {
	joined := strings.Join(tokens, " ")
	t, err := time.ParseInLocation(lstartLayout, joined, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// computeHasChildren returns the set of PIDs that appear as some other
// process's PPID in rows.
func computeHasChildren(rows []parsedPsLine) map[int]bool {
	parents := make(map[int]bool, len(rows))
	for _, r := range rows {
		if r.ppid != 0 {
			parents[r.ppid] = true
		}
	}
	return parents
}

// claudeCandidateRows returns the subset of rows whose command identifies a
// Claude Code process. Callers resolve cwd only for this subset, not the
// full host process list, so cwd resolution stays a per-candidate-session
// step rather than an unbounded per-process one.
func claudeCandidateRows(rows []parsedPsLine) []parsedPsLine {
	var out []parsedPsLine
	for _, r := range rows {
		if isClaudeCommand(r.command) {
			out = append(out, r)
		}
	}
	return out
}

// filterClaudeProcesses returns the rows whose command identifies a Claude
// Code process, converted to RawProcess with hasChildren populated from the
// full (unfiltered) row set and cwd taken from cwdByPID ("/unknown" when
// absent).
func filterClaudeProcesses(rows []parsedPsLine, cwdByPID map[int]string) []RawProcess {
	hasChildren := computeHasChildren(rows)

	var out []RawProcess
	for _, r := range rows {
		if !isClaudeCommand(r.command) {
			continue
		}
		cwd := cwdByPID[r.pid]
		if cwd == "" {
			cwd = "/unknown"
		}
		out = append(out, RawProcess{
			PID:         r.pid,
			PPID:        r.ppid,
			CPUPercent:  r.cpuPercent,
			RSSBytes:    r.rssKB * 1024,
			TTY:         r.tty,
			StartTime:   r.startTime,
			Command:     r.command,
			Cwd:         cwd,
			HasChildren: hasChildren[r.pid],
		})
	}
	return out
}
