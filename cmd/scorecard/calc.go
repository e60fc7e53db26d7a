package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"scorecard/internal/scoring"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Print calculated measure values and KPI achievements",
	Long: `Evaluate every measure for one period (--period) or for each month of a
range (--from/--to) and print calculated values with the resulting KPI
achievements. Months of a range are evaluated concurrently.`,
	Args: cobra.NoArgs,
	RunE: runCalc,
}

func init() {
	rootCmd.AddCommand(calcCmd)
	calcCmd.Flags().String("period", "", "period to evaluate (YYYY-MM)")
	calcCmd.Flags().String("from", "", "first period of a range (YYYY-MM)")
	calcCmd.Flags().String("to", "", "last period of a range (YYYY-MM)")
	calcCmd.Flags().Bool("json", false, "print JSON instead of tables")
}

func runCalc(cmd *cobra.Command, _ []string) error {
	period, _ := cmd.Flags().GetString("period")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	asJSON, _ := cmd.Flags().GetBool("json")

	switch {
	case period != "" && (from != "" || to != ""):
		return fmt.Errorf("use either --period or --from/--to")
	case period != "":
		from, to = period, period
	case from == "" || to == "":
		return fmt.Errorf("--period or both --from and --to are required")
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	finish := e.begin("calc", map[string]any{"from": from, "to": to})

	snap, err := e.loadSnapshot()
	if err != nil {
		return finish(nil, err)
	}
	cards, err := scoring.ComputeRange(snap, from, to, e.scoringOptions())
	if err != nil {
		return finish(nil, err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		if err := writeCalcJSON(out, cards); err != nil {
			return finish(nil, err)
		}
	} else {
		for _, sc := range cards {
			writeCalcTable(out, sc)
		}
	}
	return finish(map[string]any{"periods": len(cards), "measures": len(snap.Measures())}, nil)
}

type calcOutput struct {
	Period   string                  `json:"period"`
	Measures []scoring.MeasureResult `json:"measures"`
	KPIs     []scoring.KPIResult     `json:"kpis"`
}

func writeCalcJSON(w io.Writer, cards []*scoring.Scorecard) error {
	out := make([]calcOutput, 0, len(cards))
	for _, sc := range cards {
		out = append(out, calcOutput{Period: sc.Period, Measures: sc.Measures, KPIs: sc.KPIs})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode calc output: %w", err)
	}
	return nil
}

func writeCalcTable(out io.Writer, sc *scoring.Scorecard) {
	fmt.Fprintf(out, "Period %s\n", sc.Period)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MEASURE\tKPI\tVALUE")
	for _, m := range sc.Measures {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", m.Code, dash(m.KPICode), formatValue(m.Value))
	}
	_ = w.Flush()
	fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "KPI\tOBJECTIVE\tTARGET\tACTUAL\tACHIEVEMENT")
	for _, k := range sc.KPIs {
		target := "-"
		if k.Target != nil {
			target = formatFloat(*k.Target)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", k.Code, k.ObjectiveCode, target, formatValue(k.Actual), formatValue(k.Achievement))
	}
	_ = w.Flush()
	fmt.Fprintln(out)
}
