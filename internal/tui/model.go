// Package tui provides the BubbleTea-based terminal user interface.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/migui/internal/band"
	"github.com/jmylchreest/migui/internal/bootstrap"
	"github.com/jmylchreest/migui/internal/broker"
	"github.com/jmylchreest/migui/internal/logging"
	"github.com/jmylchreest/migui/internal/scope"
)

const callTimeout = 10 * time.Second

// Mode represents the current UI mode.
type Mode int

const (
	ModeList Mode = iota
	ModeDetail
	ModeHelp
)

// Session is the bootstrap the view follows.
type Session interface {
	Phase() bootstrap.Phase
	Done() <-chan struct{}
	Err() error
}

// Model is the main TUI model.
type Model struct {
	state   *scope.State
	session Session
	manager *band.Manager
	refresh time.Duration

	mode Mode

	// Components
	spinner  spinner.Model
	table    table.Model
	viewport viewport.Model
	help     help.Model

	// State
	phase    bootstrap.Phase
	err      error
	statuses []band.Status
	loading  bool
	tickGen  int
	width    int
	height   int
	ready    bool

	keys KeyMap

	statusMsg string
	statusErr bool

	changes <-chan scope.ChangeEvent
}

// New creates a new TUI model bound to the root state.
func New(state *scope.State, session Session, refresh time.Duration) Model {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))

	t := table.New(
		table.WithColumns(deviceColumns(0)),
		table.WithFocused(true),
	)

	m := Model{
		state:   state,
		session: session,
		refresh: refresh,
		mode:    ModeList,
		spinner: s,
		table:   t,
		help:    help.New(),
		keys:    DefaultKeyMap(),
		phase:   session.Phase(),
		changes: state.Subscribe(),
	}

	if proxy, ok := state.Manager(); ok {
		m.manager = band.NewManager(proxy)
	}
	return m
}

func deviceColumns(width int) []table.Column {
	status := 40
	if width > 70 {
		status = width - 30
	}
	return []table.Column{
		{Title: "Address", Width: 18},
		{Title: "Name", Width: 8},
		{Title: "Battery", Width: status},
	}
}

// Init initializes the TUI.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.waitForSession, m.watchState}
	if m.manager != nil {
		cmds = append(cmds, m.fetchDevices())
	}
	return tea.Batch(cmds...)
}

type sessionDoneMsg struct{}

// waitForSession blocks until the bootstrap settles.
func (m Model) waitForSession() tea.Msg {
	<-m.session.Done()
	return sessionDoneMsg{}
}

type stateChangedMsg struct {
	event scope.ChangeEvent
}

// watchState waits for the next root state change.
func (m Model) watchState() tea.Msg {
	ev, ok := <-m.changes
	if !ok {
		return nil
	}
	return stateChangedMsg{event: ev}
}

type devicesMsg struct {
	statuses []band.Status
	err      error
}

// refreshTickMsg carries the generation it was scheduled for. Only the
// latest generation triggers a refresh, so one periodic chain stays alive.
type refreshTickMsg struct {
	gen int
}

type detailMsg struct {
	address string
	info    band.DeviceInfo
	steps   int
	params  band.LEParams
	err     error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

func (m Model) fetchDevices() tea.Cmd {
	manager := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		statuses, err := manager.Survey(ctx)
		return devicesMsg{statuses: statuses, err: err}
	}
}

func (m Model) fetchDetail(address string) tea.Cmd {
	manager := m.manager
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()

		msg := detailMsg{address: address}
		if msg.info, msg.err = manager.DeviceInfo(ctx, address); msg.err != nil {
			return msg
		}
		if msg.steps, msg.err = manager.Steps(ctx, address); msg.err != nil {
			return msg
		}
		msg.params, msg.err = manager.LEParams(ctx, address)
		return msg
	}
}

// deviceAction runs fn against the selected band and reports the outcome.
func (m Model) deviceAction(done string, fn func(ctx context.Context, address string) error) tea.Cmd {
	address := m.selectedAddress()
	if m.manager == nil || address == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := fn(ctx, address); err != nil {
			return statusMsg{text: err.Error(), isErr: true}
		}
		return statusMsg{text: done + " " + address}
	}
}

func (m Model) selectedAddress() string {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return ""
	}
	return row[0]
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

		m.table.SetColumns(deviceColumns(msg.Width))
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-6, 3))
		m.viewport = viewport.New(msg.Width, max(msg.Height-4, 1))
		m.help.Width = msg.Width
		return m, nil

	case spinner.TickMsg:
		if m.phase.Terminal() && !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionDoneMsg:
		m.phase = m.session.Phase()
		m.err = m.session.Err()
		if m.manager == nil {
			if proxy, ok := m.state.Manager(); ok {
				return m.attach(proxy)
			}
		}
		return m, nil

	case stateChangedMsg:
		if msg.event.Field == scope.ManagerField && m.manager == nil {
			if proxy, ok := msg.event.Value.(broker.Proxy); ok {
				next, cmd := m.attach(proxy)
				return next, tea.Batch(cmd, m.watchState)
			}
		}
		return m, m.watchState

	case devicesMsg:
		m.loading = false
		if msg.err != nil {
			m.statusMsg = msg.err.Error()
			m.statusErr = true
		} else {
			m.statuses = msg.statuses
			m.table.SetRows(buildRows(msg.statuses))
		}
		if m.refresh > 0 {
			m.tickGen++
			gen := m.tickGen
			return m, tea.Tick(m.refresh, func(time.Time) tea.Msg { return refreshTickMsg{gen: gen} })
		}
		return m, nil

	case refreshTickMsg:
		if msg.gen != m.tickGen || m.loading || m.manager == nil {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchDevices())

	case detailMsg:
		if msg.err != nil {
			return m, func() tea.Msg { return statusMsg{text: msg.err.Error(), isErr: true} }
		}
		m.viewport.SetContent(renderDetail(msg))
		m.viewport.GotoTop()
		m.mode = ModeDetail
		return m, nil

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(t time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Copy failed: " + msg.err.Error(), isErr: true}
			}
		}
		return m, func() tea.Msg {
			return statusMsg{text: "Copied to clipboard", isErr: false}
		}
	}

	var cmd tea.Cmd
	switch m.mode {
	case ModeList:
		m.table, cmd = m.table.Update(msg)
	case ModeDetail:
		m.viewport, cmd = m.viewport.Update(msg)
	}
	return m, cmd
}

// attach starts driving bands through the manager proxy.
func (m Model) attach(proxy broker.Proxy) (tea.Model, tea.Cmd) {
	m.manager = band.NewManager(proxy)
	m.loading = true
	return m, tea.Batch(m.spinner.Tick, m.fetchDevices())
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		if m.mode == ModeHelp {
			m.mode = ModeList
		} else {
			m.mode = ModeHelp
		}
		return m, nil
	case key.Matches(msg, m.keys.Back):
		m.mode = ModeList
		return m, nil
	}

	if m.mode != ModeList {
		var cmd tea.Cmd
		if m.mode == ModeDetail {
			m.viewport, cmd = m.viewport.Update(msg)
		}
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Refresh):
		if m.manager == nil || m.loading {
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.fetchDevices())

	case key.Matches(msg, m.keys.Locate):
		if m.manager == nil {
			return m, nil
		}
		return m, m.deviceAction("Located", m.manager.Locate)

	case key.Matches(msg, m.keys.Flash):
		if m.manager == nil {
			return m, nil
		}
		return m, m.deviceAction("Flashed", func(ctx context.Context, address string) error {
			return m.manager.FlashLEDs(ctx, address, band.MaxLEDLevel, band.MaxLEDLevel, band.MaxLEDLevel)
		})

	case key.Matches(msg, m.keys.Enter):
		address := m.selectedAddress()
		if m.manager == nil || address == "" {
			return m, nil
		}
		return m, m.fetchDetail(address)

	case key.Matches(msg, m.keys.CopyYAML):
		data, err := yaml.Marshal(m.statuses)
		if err != nil {
			return m, func() tea.Msg {
				return statusMsg{text: "Failed to marshal YAML: " + err.Error(), isErr: true}
			}
		}
		return m, copyToClipboard(string(data))
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func copyToClipboard(text string) tea.Cmd {
	return func() tea.Msg {
		return copyResultMsg{err: copyText(text)}
	}
}

func buildRows(statuses []band.Status) []table.Row {
	rows := make([]table.Row, 0, len(statuses))
	for _, st := range statuses {
		rows = append(rows, table.Row{st.Address, st.Name, batteryText(st)})
	}
	return rows
}

func batteryText(st band.Status) string {
	switch {
	case st.Battery != nil:
		return fmt.Sprintf("%d%% %s, charged %s",
			st.Battery.Level, st.Battery.Status, humanize.Time(st.Battery.LastCharged))
	case st.Err != "":
		return "unavailable: " + st.Err
	default:
		return "-"
	}
}

// renderDetail renders the detail view for a band.
func renderDetail(d detailMsg) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("8"))

	s := headerStyle.Render(d.address) + "\n\n"
	s += labelStyle.Render("Firmware: ") + d.info.FirmwareVersion + "\n"
	s += labelStyle.Render("Steps: ") + humanize.Comma(int64(d.steps)) + "\n"
	s += "\n" + labelStyle.Render("Connection:") + "\n"
	s += fmt.Sprintf("  interval %d (min %d, max %d)\n",
		d.params.ConnectionInterval, d.params.MinConnectionInterval, d.params.MaxConnectionInterval)
	s += fmt.Sprintf("  latency %d, timeout %d\n", d.params.Latency, d.params.Timeout)
	s += fmt.Sprintf("  advertisement interval %d\n", d.params.AdvertisementInterval)
	return s
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	switch m.mode {
	case ModeDetail:
		return m.viewDetail()
	case ModeHelp:
		return m.viewHelp()
	default:
		return m.viewList()
	}
}

func (m Model) header() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	title := titleStyle.Render("Mi Bands")
	switch {
	case m.phase == bootstrap.PhaseFailed:
		msg := logging.FailureTitle
		if m.err != nil {
			msg += ": " + m.err.Error()
		}
		return title + " " + errStyle.Render(msg)
	case !m.phase.Terminal():
		return title + " " + m.spinner.View() + " resolving DeviceManager"
	case m.loading:
		return title + " " + m.spinner.View() + " scanning"
	}

	if proxy, ok := m.state.Manager(); ok {
		return title + " " + lipgloss.NewStyle().Foreground(lipgloss.Color("10")).
			Render(fmt.Sprintf("%s (%s)", proxy.Identity(), proxy.Transport()))
	}
	return title
}

func (m Model) viewList() string {
	s := m.header() + "\n\n"
	s += m.table.View()

	if m.statusMsg != "" {
		statusStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("7"))
		if m.statusErr {
			statusStyle = statusStyle.Foreground(lipgloss.Color("9"))
		}
		s += "\n" + statusStyle.Render(m.statusMsg)
	} else {
		s += "\n" + m.buildKeybindBar(m.width, "list")
	}

	return s
}

func (m Model) viewDetail() string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Padding(0, 1)

	header := headerStyle.Render("Band Detail")

	return header + "\n" + m.viewport.View() + "\n" + m.buildKeybindBar(m.width, "detail")
}

func (m Model) viewHelp() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	h := m.help
	h.ShowAll = true
	return titleStyle.Render("Keyboard Shortcuts") + "\n\n" + h.View(m.keys) + "\n\n" +
		lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render("Press ? or esc to return")
}

// keybind represents a single keybind with priority for the status bar.
type keybind struct {
	key      string
	desc     string
	priority int // lower = more important (shown first)
}

// buildKeybindBar builds a keybind bar that fits within the given width.
// mode determines which keybinds are shown: "list" or "detail".
func (m Model) buildKeybindBar(width int, mode string) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	var binds []keybind

	switch mode {
	case "list":
		binds = []keybind{
			{"q", "quit", 1},
			{"r", "refresh", 2},
			{"l", "locate", 3},
			{"enter", "details", 4},
			{"?", "help", 5},
			{"f", "flash", 6},
			{"C", "copy", 7},
		}
	case "detail":
		binds = []keybind{
			{"q", "quit", 1},
			{"esc", "back", 2},
			{"j/k", "scroll", 3},
		}
	}

	const separator = "  "
	result := ""
	plainLen := 0
	for _, b := range binds {
		plainItem := b.key + " " + b.desc
		testLen := plainLen + len(plainItem)
		if result != "" {
			testLen += len(separator)
		}
		if width > 0 && testLen > width {
			break
		}
		if result != "" {
			result += separator
		}
		result += keyStyle.Render(b.key) + " " + b.desc
		plainLen = testLen
	}

	return style.Render(result)
}

// RunOptions configures the TUI.
type RunOptions struct {
	State   *scope.State
	Session Session
	Refresh time.Duration
}

// Run starts the TUI and blocks until the user quits.
func Run(opts RunOptions) error {
	m := New(opts.State, opts.Session, opts.Refresh)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
