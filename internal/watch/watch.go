// Package watch polls a strategy directory and reports which documents
// changed since the previous poll.
package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 30 * time.Second

// StateStore persists fingerprints between polls.
type StateStore interface {
	GetState(key string) (string, error)
	SetState(key, value string) error
}

// Fingerprint maps a document path, relative to the watched directory, to
// the SHA-256 of its contents.
type Fingerprint map[string]string

// Scan fingerprints every *.yml and *.yaml file under dir. A missing
// directory yields an empty fingerprint.
func Scan(dir string) (Fingerprint, error) {
	fp := Fingerprint{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".yml" && ext != ".yaml" {
			return nil
		}
		hash, err := hashFile(path)
		if err != nil {
			return fmt.Errorf("hash file %s: %w", path, err)
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		fp[filepath.ToSlash(rel)] = hash
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	return fp, nil
}

// Changes lists the paths that are new or modified relative to prev, plus
// removed paths suffixed with " (deleted)", sorted.
func (f Fingerprint) Changes(prev Fingerprint) []string {
	var changed []string
	for path, hash := range f {
		if old, ok := prev[path]; !ok || old != hash {
			changed = append(changed, path)
		}
	}
	for path := range prev {
		if _, ok := f[path]; !ok {
			changed = append(changed, path+" (deleted)")
		}
	}
	sort.Strings(changed)
	return changed
}

// Watcher polls Dir and calls OnChange whenever its documents change.
type Watcher struct {
	Dir      string
	Key      string
	Store    StateStore
	Interval time.Duration
	Log      logrus.FieldLogger
	OnChange func(ctx context.Context, changed []string) error
}

// Pending compares the directory against the stored fingerprint and returns
// what changed along with the current fingerprint. It does not save
// anything; the first call for a key reports every document.
func (w *Watcher) Pending() ([]string, Fingerprint, error) {
	current, err := Scan(w.Dir)
	if err != nil {
		return nil, nil, err
	}

	prev := Fingerprint{}
	raw, err := w.Store.GetState(w.key())
	if err != nil {
		return nil, nil, fmt.Errorf("get watch state: %w", err)
	}
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &prev); err != nil {
			return nil, nil, fmt.Errorf("parse watch state: %w", err)
		}
	}
	return current.Changes(prev), current, nil
}

// Commit stores fp as the fingerprint later polls compare against.
func (w *Watcher) Commit(fp Fingerprint) error {
	data, err := json.Marshal(fp)
	if err != nil {
		return fmt.Errorf("marshal watch state: %w", err)
	}
	if err := w.Store.SetState(w.key(), string(data)); err != nil {
		return fmt.Errorf("save watch state: %w", err)
	}
	return nil
}

// Poll runs OnChange when documents changed and commits the new fingerprint
// only once the handler succeeds, so a failed handler is retried on the
// next poll. It returns the changed paths.
func (w *Watcher) Poll(ctx context.Context) ([]string, error) {
	changed, current, err := w.Pending()
	if err != nil {
		return nil, err
	}
	if len(changed) == 0 {
		return nil, nil
	}
	if w.OnChange != nil {
		if err := w.OnChange(ctx, changed); err != nil {
			return changed, fmt.Errorf("handle change: %w", err)
		}
	}
	return changed, w.Commit(current)
}

// Run polls immediately and then on every tick until ctx is done. Errors
// from a single poll are logged and the loop continues.
func (w *Watcher) Run(ctx context.Context) error {
	interval := w.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	log := w.logger().WithField("dir", w.Dir)
	log.WithField("interval", interval.String()).Info("Watching strategy documents")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		changed, err := w.Poll(ctx)
		switch {
		case err != nil:
			log.WithError(err).WithField("changed", changed).Error("Watch poll failed")
		case len(changed) > 0:
			log.WithField("changed", changed).Info("Strategy documents changed")
		default:
			log.Debug("No changes")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watcher) key() string {
	if w.Key != "" {
		return w.Key
	}
	return "watch:" + w.Dir
}

func (w *Watcher) logger() logrus.FieldLogger {
	if w.Log != nil {
		return w.Log
	}
	return logrus.StandardLogger()
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
