package tui

import (
	"fmt"
	"strings"

	"github.com/perfmgr/perfmgrd/internal/haptics"
	"github.com/perfmgr/perfmgrd/internal/metrics"
)

// HaptView renders the haptic actuator's state machine and, when a
// SessionMetrics is attached, the frame-jank pressure feeding its
// amplitude derating, adapted from the teacher's StatusBar single-line
// segment-rendering idiom (narrowed to a small fixed panel).
type HaptView struct {
	Runtime *haptics.HapticRuntime
	Metrics *metrics.SessionMetrics
	Width   int
}

// NewHaptView builds a HaptView bound to rt. metrics may be nil.
func NewHaptView(rt *haptics.HapticRuntime, sm *metrics.SessionMetrics) HaptView {
	return HaptView{Runtime: rt, Metrics: sm}
}

func (h HaptView) View() string {
	var b strings.Builder
	b.WriteString(stylePanelTitle.Render("Actuator") + "\n")
	state := haptics.StateIdle
	if h.Runtime != nil {
		state = h.Runtime.State()
	}
	b.WriteString("  " + stateLabel(state) + "\n")

	if h.Metrics != nil {
		snap := h.Metrics.Dump()
		var missedStyle = styleMetricGood
		if snap.Histogram.TotalFrames > 0 && float64(snap.MissedCadence)/float64(snap.Histogram.TotalFrames) > 0.5 {
			missedStyle = styleMetricBad
		}
		b.WriteString(fmt.Sprintf("  session %s: frames=%d missed=%s avg=%.1fms\n",
			snap.SessionID, snap.Histogram.TotalFrames,
			missedStyle.Render(fmt.Sprintf("%d", snap.MissedCadence)),
			snap.AvgFrameTimeMS))
	}
	return stylePanelBorder.Width(h.Width).Render(strings.TrimRight(b.String(), "\n"))
}

func stateLabel(s haptics.ActuatorState) string {
	switch s {
	case haptics.StateBusy:
		return styleStateBusy.Render("● busy")
	case haptics.StateExternal:
		return styleStateExternal.Render("◇ external")
	default:
		return styleStateIdle.Render("○ idle")
	}
}
