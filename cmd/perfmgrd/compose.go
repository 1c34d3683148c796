package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfmgr/perfmgrd/internal/config"
	"github.com/perfmgr/perfmgrd/internal/haptics"
)

func init() {
	composeCmd := &cobra.Command{
		Use:   "compose",
		Short: "Compose and activate a PWLE haptic sequence",
		Long: `Composes a sequence of --segment primitives into a single PWLE command
and activates the actuator, waiting for the completion watcher.

Segment syntax:
  delay:<durationMS>
  active:<durationMS>,<startAmp>,<endAmp>,<startFreqHz>,<endFreqHz>
  brake:<durationMS>,<CLAB|NONE>`,
		RunE: runCompose,
	}
	composeCmd.Flags().StringArray("segment", nil, "a primitive segment (repeatable, in order)")
	composeCmd.Flags().Bool("dry-run", false, "only print the composed command string; do not activate")
	composeCmd.Flags().Duration("wait", 2*time.Second, "how long to wait for the completion watcher")
	rootCmd.AddCommand(composeCmd)
}

func runCompose(cmd *cobra.Command, _ []string) error {
	segStrs, _ := cmd.Flags().GetStringArray("segment")
	if len(segStrs) == 0 {
		return fmt.Errorf("compose: at least one --segment is required")
	}
	primitives, err := parseSegments(segStrs)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		composer, err := buildComposer(cfg)
		if err != nil {
			return err
		}
		result, err := composer.ComposePWLE(primitives)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), result.Command)
		return nil
	}

	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	done := make(chan struct{})
	if err := rt.Compose(primitives, func() { close(done) }); err != nil {
		return fmt.Errorf("compose: %w", err)
	}

	wait, _ := cmd.Flags().GetDuration("wait")
	select {
	case <-done:
		fmt.Fprintln(cmd.OutOrStdout(), "compose: activation complete")
	case <-time.After(wait):
		fmt.Fprintln(cmd.OutOrStdout(), "compose: still pending after wait timeout")
	}
	return nil
}

// parseSegments converts "--segment" tokens into haptics.Primitive values.
func parseSegments(tokens []string) ([]haptics.Primitive, error) {
	primitives := make([]haptics.Primitive, 0, len(tokens))
	for _, tok := range tokens {
		kind, rest, ok := strings.Cut(tok, ":")
		if !ok {
			return nil, fmt.Errorf("invalid segment %q: expected kind:params", tok)
		}
		fields := strings.Split(rest, ",")

		switch kind {
		case "delay":
			ms, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("segment %q: invalid duration: %w", tok, err)
			}
			primitives = append(primitives, haptics.Delay(ms))

		case "active":
			if len(fields) != 5 {
				return nil, fmt.Errorf("segment %q: active needs 5 fields (duration,startAmp,endAmp,startFreq,endFreq)", tok)
			}
			vals, err := parseFloats(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("segment %q: %w", tok, err)
			}
			ms, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("segment %q: invalid duration: %w", tok, err)
			}
			primitives = append(primitives, haptics.Active(ms, vals[0], vals[1], vals[2], vals[3]))

		case "brake":
			if len(fields) != 2 {
				return nil, fmt.Errorf("segment %q: brake needs 2 fields (duration,kind)", tok)
			}
			ms, err := strconv.Atoi(fields[0])
			if err != nil {
				return nil, fmt.Errorf("segment %q: invalid duration: %w", tok, err)
			}
			primitives = append(primitives, haptics.BrakingSegment(ms, haptics.BrakingKind(fields[1])))

		default:
			return nil, fmt.Errorf("segment %q: unknown kind %q", tok, kind)
		}
	}
	return primitives, nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}
