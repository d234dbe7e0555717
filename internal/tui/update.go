package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case ProgressMsg:
		m.Progress = msg.Progress
		m.Started = true
		return m, nil
	case DoneMsg:
		m.Done = true
		m.Bundle = msg.Bundle
		m.Err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if !m.Done && m.cancel != nil {
			m.cancel()
		}
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}
