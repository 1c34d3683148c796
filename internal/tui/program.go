package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/perfmgr/perfmgrd/internal/haptics"
	"github.com/perfmgr/perfmgrd/internal/metrics"
	"github.com/perfmgr/perfmgrd/internal/perfmgr"
)

// Program is an alias for tea.Program, exposed so callers don't need to
// import bubbletea directly (same convenience the teacher's tui.go offers).
type Program = tea.Program

// NewProgram builds a bubbletea program rendering m/rt/sm on the alternate
// screen buffer.
func NewProgram(m *perfmgr.Manager, rt *haptics.HapticRuntime, sm *metrics.SessionMetrics) *Program {
	return tea.NewProgram(NewModel(m, rt, sm), tea.WithAltScreen())
}

// Run creates and runs the dashboard program, blocking until the user quits.
func Run(m *perfmgr.Manager, rt *haptics.HapticRuntime, sm *metrics.SessionMetrics) error {
	if _, err := NewProgram(m, rt, sm).Run(); err != nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
