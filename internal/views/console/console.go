// Package console renders the live server console: pushed log, info, warn
// and error lines plus the commands the user sent.
package console

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fzmanager/fzm/internal/client"
	"github.com/fzmanager/fzm/internal/theme"
)

const maxEntries = 500

// Kind classifies a console line.
type Kind string

const (
	KindLog   Kind = "log"
	KindInfo  Kind = "info"
	KindWarn  Kind = "warn"
	KindError Kind = "err"
	KindInput Kind = ">"
	KindLocal Kind = "fzm"
)

// Entry is a single console line.
type Entry struct {
	Time    time.Time
	Kind    Kind
	Message string
}

// Model holds the console buffer and scroll position.
type Model struct {
	Entries []Entry
	Offset  int // lines scrolled up from the bottom
}

// New creates an empty console.
func New() Model {
	return Model{}
}

// Add appends a line and caps the buffer. A scrolled view stays on the
// lines it was showing.
func (m *Model) Add(kind Kind, message string) {
	m.Entries = append(m.Entries, Entry{
		Time:    time.Now(),
		Kind:    kind,
		Message: message,
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	if m.Offset > 0 {
		m.ScrollUp(1)
	}
}

// AddEvent appends the console line carried by a pushed event. It reports
// false for events that have no console line.
func (m *Model) AddEvent(ev client.Event) bool {
	switch e := ev.(type) {
	case client.LogEvent:
		m.Add(KindLog, e.Line)
	case client.InfoEvent:
		m.Add(KindInfo, e.Line)
	case client.WarnEvent:
		m.Add(KindWarn, e.Line)
	case client.ErrorEvent:
		m.Add(KindError, e.Line)
	default:
		return false
	}
	return true
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	limit := max(len(m.Entries)-1, 0)
	if m.Offset > limit {
		m.Offset = limit
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset = max(m.Offset-n, 0)
}

// Bottom jumps back to the newest line.
func (m *Model) Bottom() {
	m.Offset = 0
}

func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the console panel. input is the rendered command prompt,
// or empty when the prompt is hidden.
func (m Model) View(width, height int, input string) string {
	innerW := max(width-4, 20)
	visibleLines := max(height-5, 3)
	if input != "" {
		visibleLines--
	}

	title := theme.StyleHeader.Render(" SERVER CONSOLE ")
	help := theme.StyleDimmed.Render(fmt.Sprintf(":command  j/k scroll  G bottom  esc close  %d lines", len(m.Entries)))

	var body string
	if len(m.Entries) == 0 {
		body = theme.StyleDimmed.Render("  No console output yet.")
	} else {
		end := max(len(m.Entries)-m.Offset, 0)
		start := max(end-visibleLines, 0)

		lines := make([]string, 0, end-start)
		for _, e := range m.Entries[start:end] {
			lines = append(lines, renderEntry(e, innerW))
		}
		body = strings.Join(lines, "\n")
	}

	parts := []string{title, body}
	if m.Offset > 0 {
		parts = append(parts, theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset)))
	}
	if input != "" {
		parts = append(parts, input)
	}
	parts = append(parts, help)
	return panelStyle(innerW).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func renderEntry(e Entry, width int) string {
	ts := theme.StyleDimmed.Render(e.Time.Format("15:04:05"))
	kind := lipgloss.NewStyle().Foreground(kindColor(e.Kind)).Width(4).Render(string(e.Kind))
	msg := e.Message
	if room := width - 15; room > 3 && len(msg) > room {
		msg = msg[:room-3] + "..."
	}
	return fmt.Sprintf("%s %s %s", ts, kind, msg)
}

func kindColor(k Kind) lipgloss.Color {
	switch k {
	case KindLog:
		return theme.ColorLog
	case KindInfo:
		return theme.ColorInfo
	case KindWarn:
		return theme.ColorWarn
	case KindError:
		return theme.ColorError
	case KindInput:
		return theme.ColorInput
	default:
		return theme.ColorDimmed
	}
}
