// Package harness builds the scorecard binary and runs it against fixture
// workspaces for the integration smoke tests.
package harness

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

// BinaryEnv names a prebuilt binary to use instead of building one.
const BinaryEnv = "SCORECARD_BIN"

type binary struct {
	once sync.Once
	path string
	err  error
}

//nolint:gochecknoglobals // one build per test process
var cli binary

// RepoRoot returns the module root, located from this source file.
func RepoRoot(t *testing.T) string {
	t.Helper()
	root, err := moduleRoot()
	if err != nil {
		t.Fatalf("locate module root: %v", err)
	}
	return root
}

func moduleRoot() (string, error) {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("no caller information")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		return "", fmt.Errorf("stat go.mod: %w", err)
	}
	return root, nil
}

// Fixture returns the path of a fixture directory under integration/fixtures.
func Fixture(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(RepoRoot(t), "integration", "fixtures", name)
}

// BuildBinary returns the scorecard CLI path, compiling it on first use.
func BuildBinary(t *testing.T) string {
	t.Helper()
	cli.once.Do(func() {
		if prebuilt := os.Getenv(BinaryEnv); prebuilt != "" {
			cli.path = prebuilt
			return
		}
		cli.path, cli.err = compile()
	})
	if cli.err != nil {
		t.Fatalf("build scorecard: %v", cli.err)
	}
	return cli.path
}

func compile() (string, error) {
	root, err := moduleRoot()
	if err != nil {
		return "", err
	}
	dir, err := os.MkdirTemp("", "scorecard-bin-")
	if err != nil {
		return "", fmt.Errorf("create build dir: %w", err)
	}
	out := filepath.Join(dir, "scorecard")

	build := exec.Command("go", "build", "-trimpath", "-o", out, "./cmd/scorecard")
	build.Dir = root
	if output, err := build.CombinedOutput(); err != nil {
		return "", fmt.Errorf("go build: %w\n%s", err, output)
	}
	return out, nil
}
