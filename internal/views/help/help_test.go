package help

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sections() []Section {
	return []Section{{
		Title: "Server",
		Bindings: []key.Binding{
			key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "start server")),
			key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "stop server")),
			key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "hidden"), key.WithDisabled()),
		},
	}}
}

func TestMarkdownListsEnabledBindings(t *testing.T) {
	md := New("notty", sections()...).Markdown()
	assert.Contains(t, md, "## Server")
	assert.Contains(t, md, "| `s` | start server |")
	assert.Contains(t, md, "| `S` | stop server |")
	assert.NotContains(t, md, "hidden")
}

func TestSetWidthRendersMarkdown(t *testing.T) {
	m := New("notty", sections()...)
	require.NoError(t, m.SetWidth(100))

	v := m.View()
	assert.Contains(t, v, "start server")
	assert.Contains(t, v, "esc close")
}

func TestSetWidthRejectsUnknownStyle(t *testing.T) {
	m := New("no-such-style", sections()...)
	assert.Error(t, m.SetWidth(80))
	// Falls back to raw markdown.
	assert.Contains(t, m.View(), "start server")
}
