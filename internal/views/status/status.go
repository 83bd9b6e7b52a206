// Package status renders the header bar: connection state, server status,
// server address and sync state.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/fzmanager/fzm/internal/client"
	"github.com/fzmanager/fzm/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Conn     client.ConnState
	Snapshot client.Snapshot
	Busy     string // operation in flight, if any
	Width    int
}

// New creates a status bar model.
func New() Model {
	return Model{
		Conn:     client.StateDisconnected,
		Snapshot: client.Snapshot{Status: client.StatusOffline},
	}
}

// View renders the status bar.
func (m Model) View() string {
	width := max(m.Width, 40)

	var connStr string
	switch m.Conn {
	case client.StateConnected:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● Connected")
	case client.StateConnecting:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("○ Connecting...")
	default:
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ Disconnected")
	}

	st := m.Snapshot.Status
	if st == "" {
		st = client.StatusOffline
	}
	statusStr := lipgloss.NewStyle().Foreground(theme.StatusColor(st)).
		Render(fmt.Sprintf("%s %s", theme.StatusGlyph(st), st))

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := theme.StyleTitle.Render("Factorio Zone Manager") + " " + connStr + sep + statusStr
	if addr := m.Snapshot.ServerAddress; addr != "" {
		content += sep + theme.StyleHeader.Render(addr)
	}

	switch {
	case m.Snapshot.ModsSynced && m.Snapshot.SavesSynced:
		content += sep + theme.StyleDimmed.Render("synced")
	case m.Conn == client.StateConnected:
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("syncing")
	}
	if m.Busy != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorWarning).Render(m.Busy+"...")
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
