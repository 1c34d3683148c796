package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfmgr/perfmgrd/internal/perfmgr"
)

func init() {
	requestCmd := &cobra.Command{
		Use:   "request <hint> <node>=<value>[@timeoutMS] ...",
		Short: "Submit a hint request against one or more nodes",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runRequest,
	}
	requestCmd.Flags().Duration("settle", 50*time.Millisecond, "time to let the looper apply the request before dumping")
	rootCmd.AddCommand(requestCmd)
}

func runRequest(cmd *cobra.Command, args []string) error {
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

	if !m.Request(hint, actions) {
		return fmt.Errorf("request %q: job queue rejected the submission (looper is stopping)", hint)
	}

	settle, _ := cmd.Flags().GetDuration("settle")
	time.Sleep(settle)
	m.Dump(cmd.OutOrStdout())
	return nil
}

// parseNodeActions turns "<node>=<value>[@timeoutMS]" tokens into
// perfmgr.NodeAction slices, resolving node/value names against m's catalog.
func parseNodeActions(m *perfmgr.Manager, tokens []string) ([]perfmgr.NodeAction, error) {
	actions := make([]perfmgr.NodeAction, 0, len(tokens))
	for _, tok := range tokens {
		nodePart, rest, ok := strings.Cut(tok, "=")
		if !ok {
			return nil, fmt.Errorf("invalid node action %q: expected node=value[@timeoutMS]", tok)
		}
		valuePart, timeoutPart, hasTimeout := strings.Cut(rest, "@")

		nodeIndex := m.NodeByName(nodePart)
		if nodeIndex < 0 {
			return nil, fmt.Errorf("unknown node %q", nodePart)
		}
		valueIndex := m.ValueByName(nodeIndex, valuePart)
		if valueIndex < 0 {
			return nil, fmt.Errorf("node %q has no value %q", nodePart, valuePart)
		}

		var timeout time.Duration
		if hasTimeout {
			ms, err := strconv.Atoi(timeoutPart)
			if err != nil {
				return nil, fmt.Errorf("invalid timeout %q: %w", timeoutPart, err)
			}
			timeout = time.Duration(ms) * time.Millisecond
		}

		actions = append(actions, perfmgr.NodeAction{NodeIndex: nodeIndex, ValueIndex: valueIndex, Timeout: timeout})
	}
	return actions, nil
}
