package harness

import (
	"bytes"
	"errors"
	"os/exec"
	"strings"
	"testing"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	Stdout string
	Stderr string
	Code   int
}

// Run executes the CLI in workDir and returns stdout, stderr and the exit code.
func Run(t *testing.T, binPath, workDir string, args []string) (string, string, int) {
	t.Helper()
	res := Exec(t, binPath, workDir, args...)
	return res.Stdout, res.Stderr, res.Code
}

// Exec executes the CLI in workDir. Failing to start the process fails the test.
func Exec(t *testing.T, binPath, workDir string, args ...string) Result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := exec.Command(binPath, args...)
	cmd.Dir = workDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{}
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("start %s: %v", binPath, err)
		}
		res.Code = exitErr.ExitCode()
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

// MustRun executes the CLI and fails the test on a non-zero exit code.
func MustRun(t *testing.T, binPath, workDir string, args ...string) string {
	t.Helper()
	res := Exec(t, binPath, workDir, args...)
	if res.Code != 0 {
		t.Fatalf("scorecard %s: exit code %d\nstdout:\n%s\nstderr:\n%s",
			strings.Join(args, " "), res.Code, res.Stdout, res.Stderr)
	}
	return res.Stdout
}
