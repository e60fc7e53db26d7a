package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scorecard/internal/measure"
	"scorecard/internal/strategy"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate strategy files and report modelling problems",
	Long: `Load every strategy YAML file, report structural errors, then list
diagnostics (unresolved parents, weight mismatches, unknown references) and
measure reference loops. Diagnostics do not fail the command unless --strict
is set. With --graph, also print every measure in evaluation order with the
measures it reads and the measures that read it.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Bool("strict", false, "fail when any diagnostic is reported")
	checkCmd.Flags().Bool("graph", false, "print the measure reference graph")
}

func runCheck(cmd *cobra.Command, _ []string) error {
	strict, _ := cmd.Flags().GetBool("strict")
	showGraph, _ := cmd.Flags().GetBool("graph")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	finish := e.begin("check", map[string]any{"strategy_dir": e.ws.StrategyDir, "strict": strict})
	out := cmd.OutOrStdout()

	snap, err := strategy.LoadFromDir(e.ws.StrategyDir)
	if err != nil {
		var ves strategy.ValidationErrors
		if errors.As(err, &ves) {
			for _, ve := range ves {
				fmt.Fprintf(out, "✗ %s\n", ve.Error())
			}
			return finish(map[string]any{"validation_errors": len(ves)}, fmt.Errorf("%d validation errors", len(ves)))
		}
		return finish(nil, err)
	}

	diags := strategy.Diagnose(snap, e.cfg.Weights.Tolerance)
	graph, loops := measure.BuildGraph(snap)

	fmt.Fprintf(out, "✓ %d pillars, %d objectives, %d kpis, %d measures\n",
		len(snap.Pillars()), len(snap.Objectives()), len(snap.KPIs()), len(snap.Measures()))

	if len(diags) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "KIND\tSUBJECT\tMESSAGE")
		for _, d := range diags {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", d.Kind, d.Subject, d.Message)
		}
		_ = w.Flush()
	}
	loopCount := 0
	for _, l := range loops {
		if errors.Is(l, measure.ErrReferenceLoop) {
			loopCount++
			fmt.Fprintf(out, "measure loop: %s\n", l.Error())
			if affected := graph.Dependents(l.Measure); len(affected) > 0 {
				fmt.Fprintf(out, "  affects: %s\n", strings.Join(affected, ", "))
			}
		}
	}
	if showGraph {
		writeGraph(out, graph)
	}

	fmt.Fprintf(out, "\n%d diagnostics, %d measure loops\n", len(diags), loopCount)
	payload := map[string]any{"diagnostics": len(diags), "measure_loops": loopCount}
	if strict && (len(diags) > 0 || loopCount > 0) {
		return finish(payload, fmt.Errorf("strict check failed: %d diagnostics, %d measure loops", len(diags), loopCount))
	}
	return finish(payload, nil)
}

func writeGraph(out io.Writer, graph *measure.Graph) {
	list := func(codes []string) string {
		if len(codes) == 0 {
			return "-"
		}
		return strings.Join(codes, ",")
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tMEASURE\tREADS\tUPSTREAM\tDEPENDENTS")
	for i, code := range graph.Order() {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, code,
			list(graph.DirectDependencies(code)), list(graph.Dependencies(code)), list(graph.Dependents(code)))
	}
	_ = w.Flush()
}
