package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"scorecard/internal/config"
	"scorecard/internal/history"
	"scorecard/internal/scoring"
	"scorecard/internal/strategy"
	"scorecard/internal/workspace"
)

// env is what every command needs: the workspace layout, its config and
// the history store.
type env struct {
	ws    *workspace.Workspace
	cfg   *config.Config
	store *history.Store
	log   logrus.FieldLogger
}

func loadEnv() (*env, error) {
	ws, err := workspace.Resolve(workspaceDir)
	if err != nil {
		return nil, err
	}

	cfgPath := ws.ConfigPath
	if cfgFile != "" {
		cfgPath, err = ws.ResolvePath(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("resolve --config: %w", err)
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	applyLogLevel(cfg.Logging)

	if err := ws.EnsureDirs(); err != nil {
		return nil, err
	}
	store, err := history.Open(ws.HistoryDBPath, logger)
	if err != nil {
		return nil, err
	}

	return &env{
		ws:    ws,
		cfg:   cfg,
		store: store,
		log:   logger.WithField("workspace", ws.Root),
	}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.log.WithError(err).Error("Failed to close history store")
	}
}

// begin logs <name>_started and returns a function that logs
// <name>_finished with the final payload and passes err through.
func (e *env) begin(name string, payload map[string]any) func(map[string]any, error) error {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["workspace"] = e.ws.Root
	e.audit(name+"_started", payload)
	e.log.WithField("command", name).Debug("Command started")

	return func(finish map[string]any, err error) error {
		if finish == nil {
			finish = map[string]any{}
		}
		if err != nil {
			finish["error"] = err.Error()
		}
		e.audit(name+"_finished", finish)
		return err
	}
}

func (e *env) audit(eventType string, payload map[string]any) {
	if err := e.store.LogEvent("cli", eventType, payload); err != nil {
		e.log.WithError(err).WithField("type", eventType).Warn("Audit log failed")
	}
}

func (e *env) loadSnapshot() (*strategy.Snapshot, error) {
	snap, err := strategy.LoadFromDir(e.ws.StrategyDir)
	if err != nil {
		return nil, err
	}
	for _, d := range strategy.Diagnose(snap, e.cfg.Weights.Tolerance) {
		e.log.WithFields(logrus.Fields{
			"kind":    d.Kind,
			"subject": d.Subject,
		}).Debug(d.Message)
	}
	return snap, nil
}

func (e *env) scoringOptions() scoring.Options {
	return e.cfg.ScoringOptions()
}

// loadScorecard resolves a diff argument: a report file, a run id, or
// "latest:<period>".
func (e *env) loadScorecard(ref string) (*scoring.Scorecard, string, error) {
	if period, ok := strings.CutPrefix(ref, "latest:"); ok {
		run, err := e.store.LatestRun(period)
		if err != nil {
			return nil, "", err
		}
		sc, err := run.Scorecard()
		return sc, "run " + run.ID, err
	}

	path, err := e.ws.ResolvePath(ref)
	if err != nil {
		return nil, "", err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		sc, err := scoring.LoadReport(path)
		return sc, path, err
	}

	run, err := e.store.GetRun(ref)
	if err != nil {
		if errors.Is(err, history.ErrRunNotFound) {
			return nil, "", fmt.Errorf("%q is neither a report file nor a run id: %w", ref, err)
		}
		return nil, "", err
	}
	sc, err := run.Scorecard()
	return sc, "run " + run.ID, err
}

func periodFlag(period string) (string, error) {
	if period == "" {
		return "", fmt.Errorf("--period is required")
	}
	if _, err := strategy.ParsePeriod(period); err != nil {
		return "", err
	}
	return period, nil
}
