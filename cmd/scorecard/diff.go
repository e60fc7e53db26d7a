package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scorecard/internal/scoring"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var diffCmd = &cobra.Command{
	Use:   "diff <a> <b>",
	Short: "Show a unified diff between two scorecards",
	Long: `Each argument is a report file, a recorded run id, or latest:<period> for
the most recent run of a period.`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

func runDiff(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	finish := e.begin("diff", map[string]any{"a": args[0], "b": args[1]})

	a, labelA, err := e.loadScorecard(args[0])
	if err != nil {
		return finish(nil, err)
	}
	b, labelB, err := e.loadScorecard(args[1])
	if err != nil {
		return finish(nil, err)
	}

	text, err := scoring.DiffReports(a, b, labelA, labelB)
	if err != nil {
		return finish(nil, err)
	}

	out := cmd.OutOrStdout()
	if text == "" {
		fmt.Fprintln(out, "No differences.")
	} else {
		fmt.Fprint(out, text)
	}
	return finish(map[string]any{"changed": text != ""}, nil)
}
