package app

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/fzmanager/fzm/internal/views/help"
)

// KeyMap defines all keyboard bindings for the TUI.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Left      key.Binding
	Right     key.Binding
	Tab       key.Binding
	Enter     key.Binding
	Escape    key.Binding
	Quit      key.Binding
	Toggle    key.Binding
	Delete    key.Binding
	Confirm   key.Binding
	Start     key.Binding
	Stop      key.Binding
	Console   key.Binding
	Command   key.Binding
	Bottom    key.Binding
	Reconnect key.Binding
	Help      key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "previous entry"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next entry"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "previous choice"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next choice"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch mods/saves"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close overlay"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "enable/disable mod"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete mod or save"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start server"),
		),
		Stop: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "stop server"),
		),
		Console: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "server console"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "send console command"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G"),
			key.WithHelp("G", "newest console line"),
		),
		Reconnect: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reconnect"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// HelpSections groups the bindings for the help overlay.
func (k KeyMap) HelpSections() []help.Section {
	return []help.Section{
		{Title: "Server", Bindings: []key.Binding{k.Start, k.Stop, k.Console, k.Command, k.Reconnect}},
		{Title: "Mods and saves", Bindings: []key.Binding{k.Tab, k.Up, k.Down, k.Toggle, k.Delete}},
		{Title: "Start form", Bindings: []key.Binding{k.Left, k.Right, k.Enter}},
		{Title: "General", Bindings: []key.Binding{k.Help, k.Escape, k.Quit}},
	}
}
