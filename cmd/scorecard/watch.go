package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scorecard/internal/measure"
	"scorecard/internal/scoring"
	"scorecard/internal/strategy"
	"scorecard/internal/watch"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-score a period whenever the strategy documents change",
	Long: `watch polls the workspace strategy directory and, when any document
changes, recomputes the scorecard for --period, rewrites its report and records
a run with source "watch". File fingerprints persist in the history database,
so a restart only re-scores when something changed while it was stopped. A
failed rescore is retried on the next poll.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("period", "", "period to score (YYYY-MM)")
	watchCmd.Flags().Duration("interval", watch.DefaultInterval, "poll interval")
	watchCmd.Flags().Bool("once", false, "poll once and exit")
}

// rescorer recomputes one period on every change, keeping calculated
// measure values across polls and dropping only the stale ones.
type rescorer struct {
	e       *env
	period  string
	outPath string
	cache   *measure.Cache
	prev    *strategy.Snapshot
	count   int
	out     func(format string, args ...any)
}

func (r *rescorer) onChange(_ context.Context, changed []string) error {
	payload := map[string]any{"period": r.period, "changed": changed}

	snap, err := r.e.loadSnapshot()
	if err != nil {
		payload["error"] = err.Error()
		r.e.audit("watch_rescored", payload)
		return err
	}
	graph, _ := measure.BuildGraph(snap)
	dropped := r.cache.Refresh(r.prev, snap, graph)

	opts := r.e.scoringOptions()
	opts.Cache = r.cache
	sc, result, err := r.e.scorePeriod(snap, opts, r.period, r.outPath, true, "watch")
	for k, v := range result {
		payload[k] = v
	}
	payload["cache_dropped"] = dropped
	if err != nil {
		payload["error"] = err.Error()
		r.e.audit("watch_rescored", payload)
		return err
	}
	r.e.audit("watch_rescored", payload)

	r.prev = snap
	r.count++
	r.out("%s rescored %s: organization %s (%d changed)\n",
		time.Now().Format(time.RFC3339), r.period, formatValue(sc.Organization), len(changed))
	return nil
}

func runWatch(cmd *cobra.Command, _ []string) error {
	rawPeriod, _ := cmd.Flags().GetString("period")
	interval, _ := cmd.Flags().GetDuration("interval")
	once, _ := cmd.Flags().GetBool("once")

	period, err := periodFlag(rawPeriod)
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	finish := e.begin("watch", map[string]any{"period": period, "interval": interval.String(), "once": once})

	out := cmd.OutOrStdout()
	r := &rescorer{
		e:       e,
		period:  period,
		outPath: scoring.ReportPath(e.ws.ReportsDir, period),
		cache:   measure.NewCache(),
		out:     func(format string, args ...any) { fmt.Fprintf(out, format, args...) },
	}
	w := &watch.Watcher{
		Dir:      e.ws.StrategyDir,
		Key:      "watch:strategy",
		Store:    e.store,
		Interval: interval,
		Log:      e.log,
		OnChange: r.onChange,
	}

	if once {
		changed, err := w.Poll(cmd.Context())
		if err != nil {
			return finish(map[string]any{"rescores": r.count}, err)
		}
		if len(changed) == 0 {
			fmt.Fprintln(out, "No changes.")
		}
		return finish(map[string]any{"rescores": r.count}, nil)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = w.Run(ctx)
	return finish(map[string]any{"rescores": r.count}, err)
}
