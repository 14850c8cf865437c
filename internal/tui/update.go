package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tapcraft-io/shift/internal/history"
	"github.com/tapcraft-io/shift/pkg/types"
)

// Update handles all state updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6
		m.resourceList.SetWidth(msg.Width - 4)
		m.resourceList.SetHeight(GetMaxHeight(msg.Height))
		m.historyList.SetWidth(msg.Width - 4)
		m.historyList.SetHeight(GetMaxHeight(msg.Height))

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case resourcesLoadedMsg:
		// a slow load for a kind the user already moved away from
		if msg.kind != m.kind() {
			return m, nil
		}
		m.objects = msg.objects
		m.resourceList.Title = string(msg.kind)
		cmd = m.resourceList.SetItems(convertToListItems(toListItems(msg.objects)))
		cmds = append(cmds, cmd)
		m.mode = types.ModeBrowsing
		m.statusMsg = ""
		if msg.forced {
			m.statusMsg = "Refreshed " + string(msg.kind)
		}

	case errMsg:
		m.err = msg.err
		m.mode = types.ModeError

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)
	}

	switch m.mode {
	case types.ModeBrowsing:
		m.resourceList, cmd = m.resourceList.Update(msg)
		cmds = append(cmds, cmd)
	case types.ModeViewingHistory:
		m.historyList, cmd = m.historyList.Update(msg)
		cmds = append(cmds, cmd)
	case types.ModeViewingObject:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		now := time.Now()
		if now.Sub(m.ctrlCTime) > time.Second {
			m.ctrlCPressed = 0
		}
		m.ctrlCPressed++
		m.ctrlCTime = now

		// Require double Ctrl+C to quit
		if m.ctrlCPressed >= 2 {
			m.quitting = true
			return m, tea.Quit
		}
		m.statusMsg = "Press Ctrl+C again to quit"
		return m, nil
	}
	m.ctrlCPressed = 0

	// Keys typed into the list filter belong to the list
	if m.mode == types.ModeBrowsing && m.resourceList.SettingFilter() {
		var cmd tea.Cmd
		m.resourceList, cmd = m.resourceList.Update(msg)
		return m, cmd
	}

	switch m.mode {
	case types.ModeBrowsing:
		return m.handleBrowsingMode(msg)
	case types.ModeViewingObject:
		return m.handleViewingObjectMode(msg)
	case types.ModeViewingHistory:
		return m.handleViewingHistoryMode(msg)
	case types.ModeError:
		if msg.String() == "enter" || msg.String() == "esc" {
			m.err = nil
			m.mode = types.ModeLoading
			return m, tea.Batch(m.spinner.Tick, loadResources(m.source, m.kind(), true))
		}
	}
	return m, nil
}

func (m Model) handleBrowsingMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit

	case "tab", "right", "l":
		return m.switchKind(1)

	case "shift+tab", "left", "h":
		return m.switchKind(-1)

	case "r":
		m.mode = types.ModeLoading
		return m, tea.Batch(m.spinner.Tick, loadResources(m.source, m.kind(), true))

	case "ctrl+r":
		if m.history != nil {
			m.mode = types.ModeViewingHistory
			m.historyList.SetItems(convertToListItems(history.ToListItems(m.history.GetAll())))
		}
		return m, nil

	case "enter":
		selected, ok := m.resourceList.SelectedItem().(listItem)
		if !ok {
			return m, nil
		}
		if r, ok := m.objects[selected.item.Title]; ok {
			m.viewport.SetContent(renderObject(r))
			m.viewport.GotoTop()
			m.mode = types.ModeViewingObject
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.resourceList, cmd = m.resourceList.Update(msg)
	return m, cmd
}

// switchKind moves to the next or previous kind; cached collections show
// without a round trip
func (m Model) switchKind(step int) (tea.Model, tea.Cmd) {
	n := len(DashboardKinds)
	m.kindIdx = ((m.kindIdx+step)%n + n) % n
	m.mode = types.ModeLoading
	m.resourceList.ResetFilter()
	return m, tea.Batch(m.spinner.Tick, loadResources(m.source, m.kind(), false))
}

func (m Model) handleViewingObjectMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		m.mode = types.ModeBrowsing
		return m, nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleViewingHistoryMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.historyList.SettingFilter() {
		switch msg.String() {
		case "esc", "q":
			m.mode = types.ModeBrowsing
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.historyList, cmd = m.historyList.Update(msg)
	return m, cmd
}
