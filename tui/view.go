package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFF7DB")).
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1).
			Margin(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

func (m WatchModel) View() string {
	port, ok := m.currentPort()
	headerText := "Hookbench - no listeners"
	if ok {
		headerText = fmt.Sprintf("Hookbench - port %d (%d/%d)", port, m.portIdx+1, len(m.ports))
	}
	title := titleStyle.Render(headerText)

	var pending, paired int
	for _, e := range m.entries {
		if e.HasResponse {
			paired++
		} else {
			pending++
		}
	}
	stats := fmt.Sprintf("Entries: %d\nPaired: %d  Pending: %d", len(m.entries), paired, pending)
	statsBox := infoStyle.Render(stats)

	filterLabel := "Filter: (type to filter, esc clears)"
	if m.filter != "" {
		filterLabel = "Filter: " + m.filter
	}
	filterBox := infoStyle.Render(filterLabel)

	entriesBox := infoStyle.Render(m.table.View())

	var lines []string
	lines = append(lines, title)
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, statsBox, filterBox))
	lines = append(lines, entriesBox)
	if m.statusMsg != "" {
		lines = append(lines, dimStyle.Render(m.statusMsg))
	}
	lines = append(lines, dimStyle.Render("tab: next port  c: clear log  q: quit"))

	return strings.Join(lines, "\n")
}
