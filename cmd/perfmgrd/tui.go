package main

import (
	"github.com/spf13/cobra"

	"github.com/perfmgr/perfmgrd/internal/config"
	"github.com/perfmgr/perfmgrd/internal/tui"
)

func init() {
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Run the live Node/actuator dashboard",
		RunE:  runTUI,
	}
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	sessionStore, sm, err := openSessionMetrics(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if sessionStore != nil {
		defer sessionStore.Close()
	}

	m, managerCleanup, err := openManagerWithMetrics(cmd, cfg, sm)
	if err != nil {
		return err
	}
	defer managerCleanup()

	rt, runtimeCleanup, err := openRuntimeWithMetrics(cfg, sm)
	if err != nil {
		return err
	}
	defer runtimeCleanup()

	runErr := tui.Run(m, rt, sm)
	saveSessionSnapshot(sessionStore, sm)
	return runErr
}
