package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memStore) GetState(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memStore) SetState(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]string{}
	}
	m.data[key] = value
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestScanSkipsNonYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yml"), "pillars: []\n")
	writeFile(t, filepath.Join(dir, "nested", "b.yaml"), "kpis: []\n")
	writeFile(t, filepath.Join(dir, "notes.md"), "# notes\n")

	fp, err := Scan(dir)
	require.NoError(t, err)
	assert.Len(t, fp, 2)
	assert.Contains(t, fp, "a.yml")
	assert.Contains(t, fp, "nested/b.yaml")
}

func TestScanMissingDir(t *testing.T) {
	fp, err := Scan(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, fp)
}

func TestFingerprintChanges(t *testing.T) {
	prev := Fingerprint{"a.yml": "1", "b.yml": "2", "gone.yml": "3"}
	cur := Fingerprint{"a.yml": "1", "b.yml": "20", "new.yml": "4"}

	assert.Equal(t, []string{"b.yml", "gone.yml (deleted)", "new.yml"}, cur.Changes(prev))
	assert.Empty(t, cur.Changes(cur))
}

func TestPollDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "strategy.yml"), "pillars: []\n")
	w := &Watcher{Dir: dir, Key: "watch:test", Store: &memStore{}}

	changed, err := w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"strategy.yml"}, changed)

	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changed)

	writeFile(t, filepath.Join(dir, "strategy.yml"), "pillars:\n  - code: P1\n")
	writeFile(t, filepath.Join(dir, "values.yml"), "parameter_values: []\n")
	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"strategy.yml", "values.yml"}, changed)

	require.NoError(t, os.Remove(filepath.Join(dir, "values.yml")))
	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"values.yml (deleted)"}, changed)
}

func TestPollRejectsCorruptState(t *testing.T) {
	store := &memStore{data: map[string]string{"watch:test": "{not json"}}
	w := &Watcher{Dir: t.TempDir(), Key: "watch:test", Store: store}

	_, err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse watch state")
}

func TestPollRetriesAfterHandlerFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "strategy.yml"), "pillars: []\n")

	fail := true
	calls := 0
	w := &Watcher{
		Dir:   dir,
		Key:   "watch:test",
		Store: &memStore{},
		OnChange: func(context.Context, []string) error {
			calls++
			if fail {
				return errors.New("rescore failed")
			}
			return nil
		},
	}

	changed, err := w.Poll(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"strategy.yml"}, changed)

	pending, _, err := w.Pending()
	require.NoError(t, err)
	assert.Equal(t, []string{"strategy.yml"}, pending, "fingerprint must not be saved after a failed handler")

	fail = false
	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"strategy.yml"}, changed)

	changed, err = w.Poll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, 2, calls)
}

func TestRunCallsOnChangeUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "strategy.yml"), "pillars: []\n")
	log, _ := test.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan []string, 4)
	w := &Watcher{
		Dir:      dir,
		Store:    &memStore{},
		Interval: 10 * time.Millisecond,
		Log:      log,
		OnChange: func(_ context.Context, changed []string) error {
			calls <- changed
			return nil
		},
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case changed := <-calls:
		assert.Equal(t, []string{"strategy.yml"}, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange was not called")
	}

	writeFile(t, filepath.Join(dir, "strategy.yml"), "pillars:\n  - code: P1\n")
	select {
	case changed := <-calls:
		assert.Equal(t, []string{"strategy.yml"}, changed)
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange was not called after edit")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
}
