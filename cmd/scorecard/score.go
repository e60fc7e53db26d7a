package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scorecard/internal/scoring"
	"scorecard/internal/strategy"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the scorecard for a period, write the report and record the run",
	Args:  cobra.NoArgs,
	RunE:  runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)
	scoreCmd.Flags().String("period", "", "period to score (YYYY-MM)")
	scoreCmd.Flags().String("output", "", "report path (default: <workspace>/reports/<period>.json)")
	scoreCmd.Flags().Bool("no-record", false, "do not record the run in history")
	scoreCmd.Flags().Bool("quiet", false, "do not print the scorecard")
}

func runScore(cmd *cobra.Command, _ []string) error {
	rawPeriod, _ := cmd.Flags().GetString("period")
	output, _ := cmd.Flags().GetString("output")
	noRecord, _ := cmd.Flags().GetBool("no-record")
	quiet, _ := cmd.Flags().GetBool("quiet")

	period, err := periodFlag(rawPeriod)
	if err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	finish := e.begin("score", map[string]any{"period": period})

	outPath := scoring.ReportPath(e.ws.ReportsDir, period)
	if output != "" {
		outPath, err = e.ws.ResolvePath(output)
		if err != nil {
			return finish(map[string]any{"output": output}, fmt.Errorf("resolve --output: %w", err))
		}
	}

	snap, err := e.loadSnapshot()
	if err != nil {
		return finish(map[string]any{"period": period}, err)
	}
	sc, finishPayload, err := e.scorePeriod(snap, e.scoringOptions(), period, outPath, !noRecord, "cli")
	if err != nil {
		return finish(finishPayload, err)
	}
	_ = finish(finishPayload, nil)

	out := cmd.OutOrStdout()
	if !quiet {
		fmt.Fprint(out, scoring.RenderText(sc))
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "Wrote score report: %s\n", outPath)
	return nil
}

// scorePeriod computes the scorecard for period, writes it to outPath and
// optionally records it. The returned payload describes the result for the
// audit log.
func (e *env) scorePeriod(snap *strategy.Snapshot, opts scoring.Options, period, outPath string, record bool, source string) (*scoring.Scorecard, map[string]any, error) {
	payload := map[string]any{"period": period, "output": outPath}

	sc := scoring.Compute(snap, period, opts)
	if err := scoring.WriteReport(outPath, sc); err != nil {
		return nil, payload, err
	}
	payload["organization"] = sc.Organization.Value
	payload["kpis"] = len(sc.KPIs)

	if record {
		run, err := e.store.RecordRun(sc, source)
		if err != nil {
			return nil, payload, err
		}
		payload["run_id"] = run.ID
		e.log.WithField("run_id", run.ID).Info("Recorded run")
	}
	return sc, payload, nil
}
