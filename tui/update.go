package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hookbench/hookbench/engine"
)

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if len(m.ports) > 0 {
				m.portIdx = (m.portIdx + 1) % len(m.ports)
			}
			return m, nil
		case "c":
			if port, ok := m.currentPort(); ok {
				if err := m.engine.ClearEntries(port); err == nil {
					m.statusMsg = fmt.Sprintf("cleared log for %d", port)
				}
			}
			return m, nil
		case "esc":
			m.filter = ""
			return m, nil
		case "backspace":
			if len(m.filter) > 0 {
				m.filter = m.filter[:len(m.filter)-1]
			}
			return m, nil
		default:
			// Single printable runes extend the filter; everything else
			// falls through to the table (arrows, pgup/pgdown).
			if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 {
				m.filter += string(msg.Runes)
				return m, nil
			}
		}

	case TickMsg:
		m.ports = m.engine.Ports()
		if m.portIdx >= len(m.ports) {
			m.portIdx = 0
		}

		m.entries = nil
		if port, ok := m.currentPort(); ok {
			entries, err := m.engine.Entries(port, m.filter)
			if err == nil {
				m.entries = entries
			}
		}

		rows := make([]table.Row, len(m.entries))
		for i, e := range m.entries {
			rows[i] = table.Row{
				e.ID,
				e.Method,
				e.URI,
				statusCell(e),
				durationCell(e),
			}
		}
		m.table.SetRows(rows)

		return m, tickCmd()
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m WatchModel) currentPort() (int, bool) {
	if len(m.ports) == 0 {
		return 0, false
	}
	return m.ports[m.portIdx], true
}

func statusCell(e engine.Entry) string {
	if !e.HasResponse {
		return "..."
	}
	return fmt.Sprintf("%d", e.StatusCode)
}

func durationCell(e engine.Entry) string {
	if !e.HasResponse || !e.HasRequest {
		return ""
	}
	return e.Duration.String()
}
