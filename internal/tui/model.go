package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/perfmgr/perfmgrd/internal/haptics"
	"github.com/perfmgr/perfmgrd/internal/metrics"
	"github.com/perfmgr/perfmgrd/internal/perfmgr"
)

// refreshInterval controls how often the dashboard re-renders against live
// Manager/HapticRuntime state.
const refreshInterval = 250 * time.Millisecond

type tickMsg time.Time

// Model is the top-level bubbletea model driving the dashboard, adapted
// from the teacher's AppModel composition-root pattern (Update dispatches
// on message type, View delegates to sub-panels).
type Model struct {
	manager *perfmgr.Manager
	runtime *haptics.HapticRuntime
	metrics *metrics.SessionMetrics

	dump DumpView
	hapt HaptView

	width, height int
	ready         bool
	quitting      bool
}

// NewModel builds the dashboard model. sm may be nil if no SessionMetrics
// is attached.
func NewModel(m *perfmgr.Manager, rt *haptics.HapticRuntime, sm *metrics.SessionMetrics) Model {
	return Model{
		manager: m,
		runtime: rt,
		metrics: sm,
		dump:    NewDumpView(80, 12),
		hapt:    NewHaptView(rt, sm),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.dump.SetSize(m.width-2, m.height-8)
		m.hapt.Width = m.width - 2
		m.ready = true
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.dump, cmd = m.dump.Update(msg)
		return m, cmd
	case tickMsg:
		var nodes []*perfmgr.Node
		if m.manager != nil {
			nodes = m.manager.Nodes
		}
		m.dump.Refresh(nodes)
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "loading...\n"
	}
	header := styleHeader.Width(m.width).Render("perfmgrd dashboard  (q to quit, ↑/↓ to scroll)")
	return header + "\n" + m.dump.View() + "\n" + m.hapt.View()
}
