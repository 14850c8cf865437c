package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tapcraft-io/shift/pkg/types"
)

// View renders the entire UI
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	switch m.mode {
	case types.ModeLoading:
		return m.renderLoading()
	case types.ModeError:
		return m.renderError()
	case types.ModeViewingObject:
		return m.renderViewingObject()
	case types.ModeViewingHistory:
		return m.renderViewingHistory()
	default:
		return m.renderBrowsing()
	}
}

func (m Model) header() string {
	return RenderTitle(m.source.Name(), m.server) + "\n" + m.renderKindTabs() + "\n\n"
}

func (m Model) renderKindTabs() string {
	tabs := make([]string, 0, len(DashboardKinds))
	for i, k := range DashboardKinds {
		label := k.CommandName()
		if i == m.kindIdx {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderLoading() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString(m.spinner.View())
	b.WriteString(" Loading " + string(m.kind()) + "...\n")
	return b.String()
}

func (m Model) renderError() string {
	var b strings.Builder
	b.WriteString(m.header())
	if m.err != nil {
		b.WriteString(RenderError("Error: " + m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(RenderHelp("[Enter] retry  [Ctrl+C] quit"))
	return b.String()
}

func (m Model) renderBrowsing() string {
	var b strings.Builder
	b.WriteString(m.header())

	if len(m.resourceList.Items()) == 0 {
		b.WriteString(RenderInfo("No " + string(m.kind()) + " in this project"))
		b.WriteString("\n\n")
	} else {
		b.WriteString(m.resourceList.View())
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString(RenderSuccess(m.statusMsg))
		b.WriteString("\n")
	}
	b.WriteString(RenderHelp("[Tab] next kind  [Enter] view  [r] refresh  [/] filter  [Ctrl+R] history  [q] quit"))
	return b.String()
}

func (m Model) renderViewingObject() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(RenderHelp("[↑/↓] scroll  [Esc] back"))
	return b.String()
}

func (m Model) renderViewingHistory() string {
	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString(m.historyList.View())
	b.WriteString("\n")
	b.WriteString(RenderHelp("[/] filter  [Esc] back"))
	return b.String()
}
