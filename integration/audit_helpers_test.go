package integration_test

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"scorecard/internal/history"
)

func historyDB(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, "state", "history.sqlite")
}

func eventCounts(t *testing.T, dbPath string) map[string]int {
	t.Helper()
	log, _ := test.NewNullLogger()
	store, err := history.Open(dbPath, log)
	require.NoError(t, err)
	defer func() {
		_ = store.Close()
	}()

	events, err := store.ListEvents("", 0)
	require.NoError(t, err)

	counts := make(map[string]int)
	for _, ev := range events {
		counts[ev.Type]++
	}
	return counts
}

func requireAuditEvents(t *testing.T, workspaceRoot string, want ...string) {
	t.Helper()
	counts := eventCounts(t, historyDB(workspaceRoot))
	for _, eventType := range want {
		require.NotZero(t, counts[eventType], "missing audit event %s", eventType)
	}
}
