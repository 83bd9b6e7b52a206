// Package help renders the key binding reference as a markdown overlay.
package help

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/fzmanager/fzm/internal/theme"
)

// Section groups related bindings under a heading.
type Section struct {
	Title    string
	Bindings []key.Binding
}

// Model renders Sections through glamour. Rendering is cached per width.
type Model struct {
	style    string
	sections []Section

	width    int
	rendered string
}

// New creates a help overlay. style is a glamour standard style name such
// as "dark", "light" or "notty".
func New(style string, sections ...Section) Model {
	return Model{style: style, sections: sections}
}

// Markdown returns the markdown source of the overlay.
func (m Model) Markdown() string {
	var b strings.Builder
	b.WriteString("# Factorio Zone Manager\n\n")
	for _, s := range m.sections {
		fmt.Fprintf(&b, "## %s\n\n", s.Title)
		b.WriteString("| key | action |\n|---|---|\n")
		for _, kb := range s.Bindings {
			if !kb.Enabled() {
				continue
			}
			h := kb.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
		b.WriteString("\n")
	}
	b.WriteString("Uploads and downloads run from the command line: `fzm --help`.\n")
	return b.String()
}

// SetWidth re-renders the overlay for a new terminal width.
func (m *Model) SetWidth(width int) error {
	width = max(width-4, 20)
	if width == m.width && m.rendered != "" {
		return nil
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("help renderer: %w", err)
	}
	out, err := r.Render(m.Markdown())
	if err != nil {
		return fmt.Errorf("rendering help: %w", err)
	}
	m.width = width
	m.rendered = out
	return nil
}

// View renders the overlay panel.
func (m Model) View() string {
	body := m.rendered
	if body == "" {
		body = m.Markdown()
	}
	hint := theme.StyleDimmed.Render("esc close")
	return theme.StyleBorder.
		Padding(0, 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, strings.TrimRight(body, "\n"), hint))
}
