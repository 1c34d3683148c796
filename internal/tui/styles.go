// Package tui renders a live dashboard over a perfmgr.Manager and a
// haptics.HapticRuntime, grounded on the teacher's bubbletea/lipgloss
// dashboard idiom (StatusBar/BoardView), narrowed from a multi-view IDE to
// two panels: the Node dump surface and the actuator state machine.
package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette, trimmed from the teacher's galactic palette to
// the subset this dashboard actually uses.
var (
	colorPrimary    = lipgloss.Color("#00BFFF")
	colorAccent     = lipgloss.Color("#FFD700")
	colorSuccess    = lipgloss.Color("#00E676")
	colorDanger     = lipgloss.Color("#FF5252")
	colorMuted      = lipgloss.Color("#636363")
	colorMutedLight = lipgloss.Color("#8C8C8C")
	colorWhite      = lipgloss.Color("#EEEEEE")
	colorSurface    = lipgloss.Color("#1E1E2E")
)

var (
	styleHeader = lipgloss.NewStyle().
			Background(colorSurface).
			Foreground(colorWhite).
			Bold(true).
			Padding(0, 1)

	stylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorMuted).
				Padding(0, 1)

	stylePanelTitle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	styleNodeName = lipgloss.NewStyle().Foreground(colorWhite)
	styleNodeVal  = lipgloss.NewStyle().Foreground(colorMutedLight)
	styleNodeReq  = lipgloss.NewStyle().Foreground(colorAccent)

	styleStateIdle     = lipgloss.NewStyle().Foreground(colorMutedLight)
	styleStateBusy     = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	styleStateExternal = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)

	styleMetricGood = lipgloss.NewStyle().Foreground(colorSuccess)
	styleMetricBad  = lipgloss.NewStyle().Foreground(colorDanger)

	styleFooter = lipgloss.NewStyle().Foreground(colorMuted)
)
