package discovery

import "os/exec"

// limitedWriter accepts at most limit bytes before silently discarding the
// rest, bounding memory regardless of how much a subprocess actually writes.
// Write always reports the full length as accepted so the subprocess's pipe
// is drained and it is never blocked or errored by the drop.
type limitedWriter struct {
	limit int64
	buf   []byte
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if remaining := w.limit - int64(len(w.buf)); remaining > 0 {
		if int64(len(p)) > remaining {
			w.buf = append(w.buf, p[:remaining]...)
		} else {
			w.buf = append(w.buf, p...)
		}
	}
	return len(p), nil
}

// cappedOutput runs cmd and returns its stdout as a string, bounding the
// memory used to at most maxBytes as the subprocess writes, so a
// misbehaving subprocess can't exhaust memory (spec §5: ps ≥ 10 MB, lsof ≥
// 1 MB caps). Whatever was captured is returned even when cmd exits with an
// error, since callers (e.g. resolveCwdsLsof) treat a non-zero exit with
// usable partial output differently from one with none.
func cappedOutput(cmd *exec.Cmd, maxBytes int64) (string, error) {
	w := &limitedWriter{limit: maxBytes}
	cmd.Stdout = w
	cmd.Stderr = nil
	err := cmd.Run()
	return string(w.buf), err
}
