// Package app is the root Bubble Tea model of the fzm terminal UI. It only
// renders session state and calls the client's operations; all protocol
// behavior lives in the client package.
package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/fzmanager/fzm/internal/client"
	"github.com/fzmanager/fzm/internal/config"
	"github.com/fzmanager/fzm/internal/theme"
	"github.com/fzmanager/fzm/internal/views/console"
	"github.com/fzmanager/fzm/internal/views/help"
	"github.com/fzmanager/fzm/internal/views/status"
)

// Service is the part of *client.Client the UI drives.
type Service interface {
	Connect(ctx context.Context) error
	ConnState() client.ConnState
	Snapshot() client.Snapshot
	UserToken() string
	WaitUntilSynced(ctx context.Context) error
	AddMessageListener(l client.MessageListener) client.ListenerID

	ToggleMod(ctx context.Context, modID int64, enabled bool) error
	DeleteMod(ctx context.Context, modID int64) error
	DeleteSaveSlot(ctx context.Context, slot string) error
	StartInstance(ctx context.Context, opts client.StartOptions) error
	StopInstance(ctx context.Context) error
	SendCommand(ctx context.Context, command string) error
}

// DefaultsStore persists the user's choices between runs.
type DefaultsStore interface {
	Load() (config.Defaults, error)
	Update(fn func(*config.Defaults)) error
}

// Overlay identifies which modal is active.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayConsole
	OverlayHelp
	OverlayStart
	OverlayConfirm
)

// Pane identifies the focused list on the main screen.
type Pane int

const (
	PaneMods Pane = iota
	PaneSaves
)

const eventBuffer = 256

type (
	eventMsg        struct{ ev client.Event }
	disconnectedMsg struct{ err error }
	syncedMsg       struct{ err error }
	opDoneMsg       struct {
		op  string
		err error
	}
)

type confirmation struct {
	prompt string
	run    tea.Cmd
}

type saveRow struct {
	slot  string
	label string
}

// Options configures the root model.
type Options struct {
	Service Service
	Store   DefaultsStore
	Logger  *zap.Logger
	// HelpStyle is a glamour style name; empty means "dark".
	HelpStyle string
}

// Model is the root Bubble Tea model.
type Model struct {
	svc    Service
	store  DefaultsStore
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
	events chan client.Event

	keys   KeyMap
	width  int
	height int

	snap     client.Snapshot
	saves    []saveRow
	defaults config.Defaults

	pane     Pane
	modIdx   int
	saveIdx  int
	overlay  Overlay
	form     startForm
	confirm  confirmation
	busy     string
	lastErr  string
	connErr  error
	quitting bool

	statusBar status.Model
	console   console.Model
	help      help.Model
	input     textinput.Model
}

// New creates the root model and subscribes it to pushed events.
func New(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	style := opts.HelpStyle
	if style == "" {
		style = "dark"
	}

	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "server command, e.g. /players"
	in.CharLimit = 512

	keys := DefaultKeyMap()
	m := Model{
		svc:       opts.Service,
		store:     opts.Store,
		log:       log,
		ctx:       ctx,
		cancel:    cancel,
		events:    make(chan client.Event, eventBuffer),
		keys:      keys,
		statusBar: status.New(),
		console:   console.New(),
		help:      help.New(style, keys.HelpSections()...),
		input:     in,
	}

	if m.store != nil {
		d, err := m.store.Load()
		if err != nil {
			log.Warn("loading defaults", zap.Error(err))
		}
		m.defaults = d
	}

	if m.svc != nil {
		events := m.events
		m.svc.AddMessageListener(client.MessageListenerFunc(func(ctx context.Context, ev client.Event) error {
			select {
			case events <- ev:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))
		m.refresh()
	}
	return m
}

// Init starts the connection and the sync watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.connectCmd(), m.waitEvent(), m.waitSyncCmd())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.input.Width = max(msg.Width-12, 10)
		if err := m.help.SetWidth(msg.Width); err != nil {
			m.log.Warn("rendering help", zap.Error(err))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.console.AddEvent(msg.ev)
		m.refresh()
		return m, m.waitEvent()

	case syncedMsg:
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.setError("sync", msg.err)
		}
		return m, nil

	case disconnectedMsg:
		m.refresh()
		if m.quitting || errors.Is(msg.err, context.Canceled) {
			return m, nil
		}
		m.connErr = msg.err
		m.console.Add(console.KindLocal, fmt.Sprintf("disconnected: %v", msg.err))
		m.log.Warn("disconnected", zap.Error(msg.err))
		return m, nil

	case opDoneMsg:
		m.busy = ""
		m.statusBar.Busy = ""
		m.refresh()
		if msg.err != nil {
			m.setError(msg.op, msg.err)
		} else {
			m.lastErr = ""
		}
		return m, nil
	}

	if m.input.Focused() {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}

	switch m.overlay {
	case OverlayConsole:
		return m.handleConsoleKey(msg)
	case OverlayStart:
		return m.handleStartKey(msg)
	case OverlayConfirm:
		run := m.confirm.run
		m.overlay = OverlayNone
		m.confirm = confirmation{}
		if key.Matches(msg, m.keys.Confirm) {
			return m, run
		}
		return m, nil
	case OverlayHelp:
		if key.Matches(msg, m.keys.Escape, m.keys.Help, m.keys.Quit) {
			m.overlay = OverlayNone
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.overlay = OverlayHelp
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		if m.pane == PaneMods {
			m.pane = PaneSaves
		} else {
			m.pane = PaneMods
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
		return m, nil

	case key.Matches(msg, m.keys.Toggle):
		if m.pane != PaneMods || len(m.snap.Mods) == 0 {
			return m, nil
		}
		mod := m.snap.Mods[m.modIdx]
		verb := "enabling"
		if mod.Enabled {
			verb = "disabling"
		}
		return m.run(verb+" "+mod.Text, func(ctx context.Context) error {
			return m.svc.ToggleMod(ctx, mod.ID, !mod.Enabled)
		})

	case key.Matches(msg, m.keys.Delete):
		return m.askDelete()

	case key.Matches(msg, m.keys.Start):
		if m.snap.Running {
			m.lastErr = "server is already running"
			return m, nil
		}
		m.form = newStartForm(m.snap, m.defaults)
		m.overlay = OverlayStart
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		if !m.snap.Running {
			m.lastErr = "no server is running"
			return m, nil
		}
		return m.run("stopping server", m.svc.StopInstance)

	case key.Matches(msg, m.keys.Console):
		m.overlay = OverlayConsole
		return m, nil

	case key.Matches(msg, m.keys.Command):
		m.overlay = OverlayConsole
		cmd := m.input.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.Reconnect):
		if m.svc == nil || m.svc.ConnState() != client.StateDisconnected {
			return m, nil
		}
		m.connErr = nil
		m.console.Add(console.KindLocal, "reconnecting")
		return m, tea.Batch(m.connectCmd(), m.waitSyncCmd())
	}

	return m, nil
}

func (m Model) handleConsoleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.input.Focused() {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.input.Blur()
			m.input.Reset()
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			command := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if command == "" {
				return m, nil
			}
			m.console.Add(console.KindInput, command)
			m.console.Bottom()
			return m.run("sending command", func(ctx context.Context) error {
				return m.svc.SendCommand(ctx, command)
			})
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Escape, m.keys.Console, m.keys.Quit):
		m.overlay = OverlayNone
	case key.Matches(msg, m.keys.Up):
		m.console.ScrollUp(1)
	case key.Matches(msg, m.keys.Down):
		m.console.ScrollDown(1)
	case key.Matches(msg, m.keys.Bottom):
		m.console.Bottom()
	case key.Matches(msg, m.keys.Command):
		cmd := m.input.Focus()
		return m, cmd
	}
	return m, nil
}

func (m Model) handleStartKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape, m.keys.Quit):
		m.overlay = OverlayNone
	case key.Matches(msg, m.keys.Up):
		m.form.move(-1)
	case key.Matches(msg, m.keys.Down, m.keys.Tab):
		m.form.move(1)
	case key.Matches(msg, m.keys.Left):
		m.form.cycle(-1)
	case key.Matches(msg, m.keys.Right, m.keys.Toggle):
		m.form.cycle(1)
	case key.Matches(msg, m.keys.Enter):
		opts, err := m.form.options()
		if err != nil {
			m.lastErr = err.Error()
			return m, nil
		}
		m.overlay = OverlayNone
		m.defaults.Region = opts.Region
		m.defaults.Version = opts.Version
		m.defaults.Slot = opts.Save
		m.defaults.DisableIPv6 = !opts.IPv6
		store := m.store
		return m.run("starting server", func(ctx context.Context) error {
			if store != nil {
				err := store.Update(func(d *config.Defaults) {
					d.Region = opts.Region
					d.Version = opts.Version
					d.Slot = opts.Save
					d.DisableIPv6 = !opts.IPv6
				})
				if err != nil {
					return fmt.Errorf("saving defaults: %w", err)
				}
			}
			return m.svc.StartInstance(ctx, opts)
		})
	}
	return m, nil
}

func (m Model) askDelete() (tea.Model, tea.Cmd) {
	switch m.pane {
	case PaneMods:
		if len(m.snap.Mods) == 0 {
			return m, nil
		}
		mod := m.snap.Mods[m.modIdx]
		m.confirm = confirmation{
			prompt: fmt.Sprintf("Delete mod %s?", mod.Text),
			run: m.runCmd("deleting "+mod.Text, func(ctx context.Context) error {
				return m.svc.DeleteMod(ctx, mod.ID)
			}),
		}
	case PaneSaves:
		if len(m.saves) == 0 {
			return m, nil
		}
		row := m.saves[m.saveIdx]
		if !client.SlotUsed(row.label) {
			m.lastErr = row.slot + " is already empty"
			return m, nil
		}
		m.confirm = confirmation{
			prompt: fmt.Sprintf("Delete save %s?", row.label),
			run: m.runCmd("deleting "+row.slot, func(ctx context.Context) error {
				return m.svc.DeleteSaveSlot(ctx, row.slot)
			}),
		}
	}
	m.overlay = OverlayConfirm
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.cancel()
	return m, tea.Quit
}

// run marks op as in flight and performs fn off the update loop.
func (m Model) run(op string, fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		m.lastErr = "busy: " + m.busy
		return m, nil
	}
	m.busy = op
	m.statusBar.Busy = op
	return m, m.runCmd(op, fn)
}

func (m Model) runCmd(op string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{op: op, err: fn(ctx)}
	}
}

func (m Model) connectCmd() tea.Cmd {
	if m.svc == nil {
		return nil
	}
	svc, ctx := m.svc, m.ctx
	return func() tea.Msg {
		return disconnectedMsg{err: svc.Connect(ctx)}
	}
}

// waitSyncCmd waits for the first full sync and persists the confirmed
// user token.
func (m Model) waitSyncCmd() tea.Cmd {
	if m.svc == nil {
		return nil
	}
	svc, store, ctx := m.svc, m.store, m.ctx
	return func() tea.Msg {
		if err := svc.WaitUntilSynced(ctx); err != nil {
			return syncedMsg{err: err}
		}
		if store == nil {
			return syncedMsg{}
		}
		token := svc.UserToken()
		err := store.Update(func(d *config.Defaults) { d.UserToken = token })
		if err != nil {
			err = fmt.Errorf("saving user token: %w", err)
		}
		return syncedMsg{err: err}
	}
}

func (m Model) waitEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			return eventMsg{ev: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Model) setError(op string, err error) {
	m.lastErr = fmt.Sprintf("%s: %v", op, err)
	m.console.Add(console.KindLocal, m.lastErr)
	m.log.Error("operation failed", zap.String("op", op), zap.Error(err))
}

// refresh copies the session state the views render from.
func (m *Model) refresh() {
	if m.svc == nil {
		return
	}
	m.snap = m.svc.Snapshot()
	m.statusBar.Conn = m.svc.ConnState()
	m.statusBar.Snapshot = m.snap

	m.saves = make([]saveRow, 0, len(m.snap.Saves))
	for slot, label := range m.snap.Saves {
		m.saves = append(m.saves, saveRow{slot: slot, label: label})
	}
	slices.SortFunc(m.saves, func(a, b saveRow) int {
		ai, _ := client.SlotIndex(a.slot)
		bi, _ := client.SlotIndex(b.slot)
		if ai != bi {
			return ai - bi
		}
		return strings.Compare(a.slot, b.slot)
	})

	m.modIdx = clamp(m.modIdx, len(m.snap.Mods))
	m.saveIdx = clamp(m.saveIdx, len(m.saves))
}

func (m *Model) moveSelection(delta int) {
	switch m.pane {
	case PaneMods:
		if n := len(m.snap.Mods); n > 0 {
			m.modIdx = (m.modIdx + delta + n) % n
		}
	case PaneSaves:
		if n := len(m.saves); n > 0 {
			m.saveIdx = (m.saveIdx + delta + n) % n
		}
	}
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	return min(i, n-1)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var body string
	switch m.overlay {
	case OverlayConsole:
		input := ""
		if m.input.Focused() {
			input = m.input.View()
		}
		body = m.console.View(m.width, m.height-3, input)
	case OverlayHelp:
		body = m.help.View()
	case OverlayStart:
		body = m.form.view()
	case OverlayConfirm:
		body = theme.StyleBorder.Padding(1, 2).Render(
			theme.StyleHeader.Render(m.confirm.prompt) + "\n\n" + theme.StyleDimmed.Render("y confirm  any other key cancels"))
	default:
		body = m.renderMain()
	}

	sections := []string{m.statusBar.View()}
	if m.connErr != nil {
		sections = append(sections, m.renderDisconnected())
	}
	sections = append(sections, body)
	if m.lastErr != "" {
		sections = append(sections, theme.StyleError.Render("  "+m.lastErr))
	}
	sections = append(sections, theme.StyleDimmed.Render(
		"  tab:pane  j/k:select  space:toggle  d:delete  s:start  S:stop  c:console  ?:help  q:quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderDisconnected() string {
	return lipgloss.NewStyle().
		Foreground(theme.ColorDanger).
		Bold(true).
		Render(fmt.Sprintf("  DISCONNECTED: %v  (r to reconnect)", m.connErr))
}

func (m Model) renderMain() string {
	paneW := max((m.width-4)/2, 24)

	var mods []string
	for i, mod := range m.snap.Mods {
		check := "[ ]"
		if mod.Enabled {
			check = "[x]"
		}
		mods = append(mods, renderRow(m.pane == PaneMods && i == m.modIdx, truncate(check+" "+mod.Text, paneW-4)))
	}
	if len(mods) == 0 {
		mods = append(mods, theme.StyleDimmed.Render("  No uploaded mods"))
	}

	var saves []string
	for i, row := range m.saves {
		label := truncate(row.label, paneW-4)
		if !client.SlotUsed(row.label) {
			label = theme.StyleDimmed.Render(label)
		}
		saves = append(saves, renderRow(m.pane == PaneSaves && i == m.saveIdx, label))
	}
	if len(saves) == 0 {
		saves = append(saves, theme.StyleDimmed.Render("  Waiting for save slots"))
	}

	left := m.renderPane("MODS", m.pane == PaneMods, mods, paneW)
	right := m.renderPane("SAVES", m.pane == PaneSaves, saves, paneW)
	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m Model) renderPane(title string, focused bool, rows []string, width int) string {
	style := theme.StyleBorder.Width(width)
	if focused {
		style = style.BorderForeground(theme.ColorFactorio)
	}
	header := theme.StyleHeader.Render(" " + title + " ")
	return style.Render(lipgloss.JoinVertical(lipgloss.Left, append([]string{header}, rows...)...))
}

func truncate(text string, width int) string {
	if width > 4 && len(text) > width {
		return text[:width-3] + "..."
	}
	return text
}

func renderRow(selected bool, text string) string {
	if selected {
		return theme.StyleSelected.Render("> " + text)
	}
	return "  " + text
}
