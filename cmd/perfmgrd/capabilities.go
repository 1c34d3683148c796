package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/perfmgr/perfmgrd/internal/haptics"
)

func init() {
	capsCmd := &cobra.Command{
		Use:   "capabilities",
		Short: "Print the actuator's capability bitmask and calibrated limits",
		RunE:  runCapabilities,
	}
	rootCmd.AddCommand(capsCmd)
}

func runCapabilities(cmd *cobra.Command, _ []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	printCapabilities(cmd.OutOrStdout(), rt)
	return nil
}

var capabilityNames = map[haptics.Capability]string{
	haptics.CapabilityOnCallback:      "ON_CALLBACK",
	haptics.CapabilityPerformCallback: "PERFORM_CALLBACK",
	haptics.CapabilityAmplitudeControl: "AMPLITUDE_CONTROL",
	haptics.CapabilityExternalControl: "EXTERNAL_CONTROL",
	haptics.CapabilityComposePwle:     "COMPOSE_PWLE",
	haptics.CapabilityComposeEffect:   "COMPOSE_EFFECT",
}

func printCapabilities(w io.Writer, rt *haptics.HapticRuntime) {
	caps := rt.GetCapabilities()
	fmt.Fprintln(w, "capabilities:")
	for _, bit := range []haptics.Capability{
		haptics.CapabilityOnCallback,
		haptics.CapabilityPerformCallback,
		haptics.CapabilityAmplitudeControl,
		haptics.CapabilityExternalControl,
		haptics.CapabilityComposePwle,
		haptics.CapabilityComposeEffect,
	} {
		fmt.Fprintf(w, "  %-20s %v\n", capabilityNames[bit], caps.Has(bit))
	}

	primitives := rt.GetSupportedPrimitives()
	names := make([]string, 0, len(primitives))
	for _, p := range primitives {
		names = append(names, string(p))
	}
	sort.Strings(names)
	fmt.Fprintf(w, "supported_primitives: %v\n", names)

	braking := rt.GetSupportedBraking()
	brakingNames := make([]string, 0, len(braking))
	for _, b := range braking {
		brakingNames = append(brakingNames, string(b))
	}
	sort.Strings(brakingNames)
	fmt.Fprintf(w, "supported_braking: %v\n", brakingNames)

	fmt.Fprintf(w, "pwle_composition_size_max: %d\n", rt.GetPwleCompositionSizeMax())
	fmt.Fprintf(w, "resonant_frequency_hz: %.2f\n", rt.GetResonantFrequency())
	fmt.Fprintf(w, "q_factor: %.2f\n", rt.GetQFactor())
	fmt.Fprintf(w, "frequency_min_hz: %.2f\n", rt.GetFrequencyMin())
	fmt.Fprintf(w, "frequency_resolution_hz: %.2f\n", rt.GetFrequencyResolution())
	if bw := rt.GetBandwidthAmplitudeMap(); bw != nil {
		fmt.Fprintf(w, "bandwidth_amplitude_map: %d bins\n", len(bw.Levels))
	} else {
		fmt.Fprintln(w, "bandwidth_amplitude_map: <none>")
	}
}
