// Package workspace resolves the directory layout a scorecard command
// operates on.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Workspace holds the workspace-relative paths used by the CLI.
type Workspace struct {
	Root          string
	StrategyDir   string
	ReportsDir    string
	StateDir      string
	HistoryDBPath string
	ConfigPath    string
}

// Resolve expands and validates the workspace root, ensuring it exists.
func Resolve(root string) (*Workspace, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", abs)
	}
	return newWorkspace(abs), nil
}

// New resolves the workspace root without requiring it to exist.
func New(root string) (*Workspace, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	return newWorkspace(abs), nil
}

// EnsureDirs creates the strategy, reports and state directories.
func (w *Workspace) EnsureDirs() error {
	if w == nil {
		return fmt.Errorf("workspace is nil")
	}
	for _, dir := range []string{w.StrategyDir, w.ReportsDir, w.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure %s: %w", dir, err)
		}
	}
	return nil
}

// ResolvePath returns an absolute path, resolving relative paths from the workspace root.
func (w *Workspace) ResolvePath(path string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("workspace is nil")
	}
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Abs(filepath.Join(w.Root, expanded))
}

// Scaffold writes a starter strategy and config. Existing files are kept
// unless overwrite is set. It returns the files written.
func (w *Workspace) Scaffold(config []byte, overwrite bool) ([]string, error) {
	if err := w.EnsureDirs(); err != nil {
		return nil, err
	}
	files := []struct {
		path string
		data []byte
	}{
		{filepath.Join(w.StrategyDir, "strategy.yml"), []byte(starterStrategy)},
		{w.ConfigPath, config},
	}

	var written []string
	for _, f := range files {
		if !overwrite {
			if _, err := os.Stat(f.path); err == nil {
				continue
			}
		}
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", f.path, err)
		}
		written = append(written, f.path)
	}
	return written, nil
}

func newWorkspace(root string) *Workspace {
	return &Workspace{
		Root:          root,
		StrategyDir:   filepath.Join(root, "strategy"),
		ReportsDir:    filepath.Join(root, "reports"),
		StateDir:      filepath.Join(root, "state"),
		HistoryDBPath: filepath.Join(root, "state", "history.sqlite"),
		ConfigPath:    filepath.Join(root, "scorecard.yaml"),
	}
}

func resolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("workspace root is required")
	}
	expanded, err := expandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home expansion: %s", path)
}

const starterStrategy = `pillars:
  - code: GROWTH
    name: Growth
    weight: 100
objectives:
  - code: REV
    name: Grow recurring revenue
    level: L1
    weight: 100
    pillar_code: GROWTH
    business_unit: HQ
kpis:
  - code: MRR
    name: Monthly recurring revenue
    objective_code: REV
    weight: 100
    target: 100000
measures:
  - code: MRR_CALC
    kpi_code: MRR
    parameters: [new, churned]
    formula:
      - {type: dataPoint, code: new}
      - {type: operator, value: "-"}
      - {type: dataPoint, code: churned}
parameter_values: []
`
