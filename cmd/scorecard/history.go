package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"scorecard/internal/history"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded scorecard runs",
}

//nolint:gochecknoglobals // Cobra commands are typically global
var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var historyNodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Show the recorded values of one node across runs",
	Args:  cobra.NoArgs,
	RunE:  runHistoryNode,
}

//nolint:gochecknoglobals // Cobra commands are typically global
var historyEventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show audit events",
	Args:  cobra.NoArgs,
	RunE:  runHistoryEvents,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyNodeCmd)
	historyCmd.AddCommand(historyEventsCmd)

	historyListCmd.Flags().Int("limit", 20, "maximum number of runs")

	historyNodeCmd.Flags().String("type", history.NodeObjective, "node type: organization, pillar, business_unit, objective, kpi, measure")
	historyNodeCmd.Flags().String("code", "", "node code")
	historyNodeCmd.Flags().Int("limit", 24, "maximum number of points")

	historyEventsCmd.Flags().String("type", "", "only events of this type")
	historyEventsCmd.Flags().Int("limit", 50, "maximum number of events")
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	runs, err := e.store.ListRuns(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN ID\tPERIOD\tCREATED\tSOURCE\tORGANIZATION")
	for _, r := range runs {
		org := "n/a"
		if r.Organization != nil {
			org = formatFloat(*r.Organization)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Period, r.CreatedAt.Format(time.RFC3339), r.Source, org)
	}
	_ = w.Flush()
	return nil
}

func runHistoryNode(cmd *cobra.Command, _ []string) error {
	nodeType, _ := cmd.Flags().GetString("type")
	code, _ := cmd.Flags().GetString("code")
	limit, _ := cmd.Flags().GetInt("limit")

	switch nodeType {
	case history.NodeOrganization:
		code = history.NodeOrganization
	case history.NodePillar, history.NodeBusinessUnit, history.NodeObjective, history.NodeKPI, history.NodeMeasure:
		if code == "" {
			return fmt.Errorf("--code is required for %s nodes", nodeType)
		}
	default:
		return fmt.Errorf("unknown node type %q", nodeType)
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	points, err := e.store.NodeHistory(nodeType, code, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PERIOD\tVALUE\tRUN ID\tCREATED")
	for _, p := range points {
		v := "n/a"
		switch {
		case p.Invalid:
			v = "invalid"
		case p.Value != nil:
			v = formatFloat(*p.Value)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Period, v, p.RunID, p.CreatedAt.Format(time.RFC3339))
	}
	_ = w.Flush()
	return nil
}

func runHistoryEvents(cmd *cobra.Command, _ []string) error {
	eventType, _ := cmd.Flags().GetString("type")
	limit, _ := cmd.Flags().GetInt("limit")

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.Close()

	events, err := e.store.ListEvents(eventType, limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTIME\tACTOR\tTYPE\tPAYLOAD")
	for _, ev := range events {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", ev.ID, ev.Time.Format(time.RFC3339), ev.Actor, ev.Type, ev.PayloadJSON)
	}
	_ = w.Flush()
	return nil
}
