package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"scorecard/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")

	stdout := harness.MustRun(t, binPath, t.TempDir(), "init", "--workspace", workspaceRoot)
	require.Contains(t, stdout, "Initialized workspace")

	for _, path := range []string{
		filepath.Join(workspaceRoot, "strategy"),
		filepath.Join(workspaceRoot, "reports"),
		filepath.Join(workspaceRoot, "state"),
		filepath.Join(workspaceRoot, "strategy", "strategy.yml"),
		filepath.Join(workspaceRoot, "scorecard.yaml"),
		historyDB(workspaceRoot),
	} {
		_, err := os.Stat(path)
		require.NoError(t, err, "missing init path %s", path)
	}
	requireAuditEvents(t, workspaceRoot, "workspace_init_started", "workspace_init_finished")

	// The starter strategy must validate as-is.
	stdout = harness.MustRun(t, binPath, workspaceRoot, "check", "--workspace", workspaceRoot)
	require.Contains(t, stdout, "1 pillars, 1 objectives, 1 kpis, 1 measures")

	again := harness.MustRun(t, binPath, workspaceRoot, "init", "--workspace", workspaceRoot)
	require.Contains(t, again, "existing files kept")
}
