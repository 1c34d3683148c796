package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/perfmgr/perfmgrd/internal/perfmgr"
)

// DumpView renders the Node set's applied values and active-request counts
// inside a scrollable viewport, adapted from the teacher's DetailPanel
// (viewport.Model wrapper) narrowed from arbitrary agent-output text to a
// fixed node table.
type DumpView struct {
	viewport viewport.Model
	title    string
}

// NewDumpView creates a DumpView with the given dimensions.
func NewDumpView(width, height int) DumpView {
	vp := viewport.New(width, height)
	return DumpView{viewport: vp, title: "Nodes"}
}

// SetSize resizes the underlying viewport.
func (d *DumpView) SetSize(width, height int) {
	d.viewport.Width = width
	d.viewport.Height = height
}

// Refresh re-renders nodes into the viewport, preserving scroll position.
func (d *DumpView) Refresh(nodes []*perfmgr.Node) {
	var b strings.Builder
	if len(nodes) == 0 {
		b.WriteString(styleFooter.Render("(no nodes loaded)"))
	}
	for _, n := range nodes {
		applied, active := n.Snapshot()
		value := "-"
		if applied >= 0 && applied < len(n.Values) {
			value = n.Values[applied]
		}
		fmt.Fprintf(&b, "%-16s %-12s %s\n",
			styleNodeName.Render(n.Name),
			styleNodeVal.Render(value),
			styleNodeReq.Render(fmt.Sprintf("%d active", len(active))),
		)
	}
	atBottom := d.viewport.AtBottom()
	d.viewport.SetContent(strings.TrimRight(b.String(), "\n"))
	if atBottom {
		d.viewport.GotoBottom()
	}
}

// Update forwards scroll keys to the underlying viewport.
func (d DumpView) Update(msg tea.Msg) (DumpView, tea.Cmd) {
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd
}

func (d DumpView) View() string {
	body := stylePanelTitle.Render(d.title) + "\n" + d.viewport.View()
	return stylePanelBorder.Width(d.viewport.Width).Render(body)
}
