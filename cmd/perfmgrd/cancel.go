package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	cancelCmd := &cobra.Command{
		Use:   "cancel <hint> <node>=<value>[@timeoutMS] ...",
		Short: "Submit a hint cancellation against one or more nodes",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runCancel,
	}
	cancelCmd.Flags().Duration("settle", 50*time.Millisecond, "time to let the looper apply the cancellation before dumping")
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	hint := args[0]

	m, cleanup, err := openManager(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	actions, err := parseNodeActions(m, args[1:])
	if err != nil {
		return err
	}

	if !m.Cancel(hint, actions) {
		return fmt.Errorf("cancel %q: job queue rejected the submission (looper is stopping)", hint)
	}

	settle, _ := cmd.Flags().GetDuration("settle")
	time.Sleep(settle)
	m.Dump(cmd.OutOrStdout())
	return nil
}
