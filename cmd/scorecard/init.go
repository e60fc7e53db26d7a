package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scorecard/internal/config"
	"scorecard/internal/history"
	"scorecard/internal/workspace"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a workspace with a starter strategy and config",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "overwrite existing starter files")
}

func runInit(cmd *cobra.Command, _ []string) error {
	force, _ := cmd.Flags().GetBool("force")

	ws, err := workspace.New(workspaceDir)
	if err != nil {
		return err
	}
	if err := ws.EnsureDirs(); err != nil {
		return err
	}
	applyLogLevel("")

	store, err := history.Open(ws.HistoryDBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	startPayload := map[string]any{"workspace": ws.Root, "force": force}
	if err := store.LogEvent("cli", "workspace_init_started", startPayload); err != nil {
		logger.WithError(err).Warn("Audit log failed")
	}

	cfg, err := config.Default()
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}

	written, err := ws.Scaffold(data, force)
	finishPayload := map[string]any{"workspace": ws.Root, "written": written}
	if err != nil {
		finishPayload["error"] = err.Error()
	}
	_ = store.LogEvent("cli", "workspace_init_finished", finishPayload)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Initialized workspace: %s\n", ws.Root)
	for _, path := range written {
		fmt.Fprintf(out, "  wrote %s\n", path)
	}
	if len(written) == 0 {
		fmt.Fprintln(out, "  existing files kept (use --force to overwrite)")
	}
	return nil
}
