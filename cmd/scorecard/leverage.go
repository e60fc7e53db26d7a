package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scorecard/internal/scoring"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var leverageCmd = &cobra.Command{
	Use:   "leverage",
	Short: "Rank KPIs by their potential impact on the organization score",
	Args:  cobra.NoArgs,
	RunE:  runLeverage,
}

func init() {
	rootCmd.AddCommand(leverageCmd)
	leverageCmd.Flags().String("period", "", "period to rank (YYYY-MM)")
	leverageCmd.Flags().Int("top", 0, "show only the first N KPIs (0 shows all)")
	leverageCmd.Flags().String("mode", "", "composite weight mode: direct or path (default from config)")
}

func runLeverage(cmd *cobra.Command, _ []string) error {
	rawPeriod, _ := cmd.Flags().GetString("period")
	top, _ := cmd.Flags().GetInt("top")
	rawMode, _ := cmd.Flags().GetString("mode")

	period, err := periodFlag(rawPeriod)
	if err != nil {
		return err
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	opts := e.scoringOptions()
	if rawMode != "" {
		mode, err := scoring.ParseCompositeMode(rawMode)
		if err != nil {
			return err
		}
		opts.Leverage.Mode = mode
	}

	finish := e.begin("leverage", map[string]any{"period": period, "mode": string(opts.Leverage.Mode), "top": top})

	snap, err := e.loadSnapshot()
	if err != nil {
		return finish(nil, err)
	}
	entries := scoring.Compute(snap, period, opts).Leverage
	if top > 0 && len(entries) > top {
		entries = entries[:top]
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RANK\tKPI\tOBJECTIVE\tPILLAR\tWEIGHT\tACHIEVEMENT\tGAP\tLEVERAGE\tIMPACT")
	for i, l := range entries {
		achievement := "n/a"
		if l.Achievement != nil {
			achievement = formatFloat(*l.Achievement)
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1, l.KPICode, l.ObjectiveCode, dash(l.PillarCode), fmt.Sprintf("%.4f", l.CompositeWeight),
			achievement, formatFloat(l.Gap), formatFloat(l.Leverage), formatFloat(l.ImpactOf10Pct))
	}
	_ = w.Flush()

	return finish(map[string]any{"period": period, "ranked": len(entries)}, nil)
}
