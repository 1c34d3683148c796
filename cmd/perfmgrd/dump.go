package main

import (
	"time"

	"github.com/spf13/cobra"
)

func init() {
	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the Node/queue/session-metrics dump surface",
		RunE:  runDump,
	}
	dumpCmd.Flags().Duration("settle", 20*time.Millisecond, "time to let the looper run one pass before dumping")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, _ []string) error {
	m, cleanup, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	settle, _ := cmd.Flags().GetDuration("settle")
	time.Sleep(settle)

	m.Dump(cmd.OutOrStdout())
	return nil
}
