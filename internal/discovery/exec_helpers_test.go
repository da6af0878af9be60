package discovery

import (
	"os"
	"os/exec"
	"testing"
)

// TestMain intercepts a re-exec of the test binary itself so
// TestCappedOutput_BoundsMemoryRegardlessOfSubprocessOutput has a portable
// subprocess that writes far more than any cap under test, without
// depending on any particular external command being installed.
func TestMain(m *testing.M) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") == "1" {
		buf := make([]byte, 1024*1024)
		for i := range buf {
			buf[i] = 'a'
		}
		os.Stdout.Write(buf)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func helperCommand() *exec.Cmd {
	cmd := exec.Command(os.Args[0], "-test.run=TestMain")
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func TestCappedOutput_BoundsMemoryRegardlessOfSubprocessOutput(t *testing.T) {
	out, err := cappedOutput(helperCommand(), 100)
	if err != nil {
		t.Fatalf("cappedOutput: %v", err)
	}
	if len(out) != 100 {
		t.Errorf("len(out) = %d, want exactly 100 (the subprocess wrote 1 MiB)", len(out))
	}
}

func TestCappedOutput_UnderLimitReturnsFullOutput(t *testing.T) {
	cmd := exec.Command("echo", "-n", "hello")
	out, err := cappedOutput(cmd, 1024)
	if err != nil {
		t.Fatalf("cappedOutput: %v", err)
	}
	if out != "hello" {
		t.Errorf("out = %q, want %q", out, "hello")
	}
}
