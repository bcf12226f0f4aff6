// Package tui renders a live terminal view of the correlation log. It is a
// read-only consumer of the engine: a 250ms tick re-queries the selected
// port's entries and redraws.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hookbench/hookbench/engine"
)

// TickMsg drives the periodic refresh.
type TickMsg time.Time

// WatchModel is the bubbletea model for watch mode.
type WatchModel struct {
	engine *engine.Engine

	ports     []int
	portIdx   int
	filter    string
	entries   []engine.Entry
	table     table.Model
	statusMsg string
}

// NewWatchModel creates the watch view over a running engine.
func NewWatchModel(eng *engine.Engine) WatchModel {
	columns := []table.Column{
		{Title: "ID", Width: 12},
		{Title: "Method", Width: 8},
		{Title: "URI", Width: 32},
		{Title: "Status", Width: 8},
		{Title: "Duration", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return WatchModel{
		engine: eng,
		table:  t,
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
