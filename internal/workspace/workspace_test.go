package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorecard/internal/strategy"
)

func TestResolveLayout(t *testing.T) {
	root := t.TempDir()
	ws, err := Resolve(root)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "strategy"), ws.StrategyDir)
	assert.Equal(t, filepath.Join(root, "state", "history.sqlite"), ws.HistoryDBPath)
	assert.Equal(t, filepath.Join(root, "scorecard.yaml"), ws.ConfigPath)

	abs, err := ws.ResolvePath("reports/2025-01.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "reports", "2025-01.json"), abs)

	abs, err = ws.ResolvePath("/tmp/x.json")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.json", abs)
}

func TestResolveErrors(t *testing.T) {
	_, err := Resolve("")
	assert.Error(t, err)

	_, err = Resolve(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = Resolve(file)
	assert.Error(t, err)

	_, err = New("~nobody/x")
	assert.Error(t, err)
}

func TestScaffold(t *testing.T) {
	ws, err := New(filepath.Join(t.TempDir(), "ws"))
	require.NoError(t, err)

	written, err := ws.Scaffold([]byte("logging: info\n"), false)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	snap, err := strategy.LoadFromDir(ws.StrategyDir)
	require.NoError(t, err)
	_, ok := snap.MeasureForKPI("MRR")
	assert.True(t, ok)

	require.NoError(t, os.WriteFile(ws.ConfigPath, []byte("logging: debug\n"), 0o644))
	written, err = ws.Scaffold([]byte("logging: info\n"), false)
	require.NoError(t, err)
	assert.Empty(t, written)

	data, err := os.ReadFile(ws.ConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "logging: debug\n", string(data))

	written, err = ws.Scaffold([]byte("logging: info\n"), true)
	require.NoError(t, err)
	assert.Len(t, written, 2)

	for _, dir := range []string{ws.ReportsDir, ws.StateDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
