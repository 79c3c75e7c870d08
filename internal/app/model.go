// Package app implements the report viewer with tab-based navigation.
package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/sbu-reporter/internal/accounting"
	"github.com/j-veylop/sbu-reporter/internal/services"
	"github.com/j-veylop/sbu-reporter/internal/ui/components"
	"github.com/j-veylop/sbu-reporter/internal/ui/styles"
)

// TabID indexes the viewer tabs; 1-5 select them.
type TabID int

const (
	TabUsers TabID = iota
	TabProjects
	TabCumulative
	TabPercent
	TabChart
)

var tabNames = [...]string{"Users", "Projects", "Cumulative", "Percent", "Chart"}

func (t TabID) String() string {
	if t < 0 || int(t) >= len(tabNames) {
		return "Unknown"
	}
	return tabNames[t]
}

// Tab is one page of the viewer. Every tab shows the same result.
type Tab interface {
	Init() tea.Cmd
	Update(msg tea.Msg) (Tab, tea.Cmd)
	View() string
	SetSize(width, height int)
	SetResult(res *services.Result)
	ShortHelp() []key.Binding
	FullHelp() [][]key.Binding
}

// KeyMap holds the global bindings. Keys it does not match scroll the
// active tab.
type KeyMap struct {
	Tabs    []key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Refresh key.Binding
	Export  key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

func DefaultKeyMap() KeyMap {
	return setActionKeys(setTabKeys(KeyMap{}))
}

func setTabKeys(k KeyMap) KeyMap {
	for id := TabUsers; id <= TabChart; id++ {
		n := fmt.Sprint(int(id) + 1)
		k.Tabs = append(k.Tabs, key.NewBinding(key.WithKeys(n), key.WithHelp(n, strings.ToLower(id.String()))))
	}
	k.NextTab = key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab"))
	k.PrevTab = key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab"))
	return k
}

func setActionKeys(k KeyMap) KeyMap {
	k.Refresh = key.NewBinding(key.WithKeys("r", "ctrl+r"), key.WithHelp("r", "re-run"))
	k.Export = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export"))
	k.Help = key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help"))
	k.Quit = key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit"))
	k.Escape = key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close"))
	return k
}

// ShortHelp returns key bindings for the short help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Refresh, k.Export, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.Tabs,
		{k.NextTab, k.PrevTab},
		{k.Refresh, k.Export, k.Help, k.Quit},
	}
}

// Styles are the viewer's chrome: tab bar, toasts and status line.
type Styles struct {
	TabBar      lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style

	NotificationSuccess lipgloss.Style
	NotificationError   lipgloss.Style
	NotificationWarning lipgloss.Style
	NotificationInfo    lipgloss.Style

	Content   lipgloss.Style
	Toast     lipgloss.Style
	StatusBar lipgloss.Style
	Title     lipgloss.Style
	Subtle    lipgloss.Style
	Highlight lipgloss.Style
}

func DefaultStyles() Styles {
	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(styles.Subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(styles.Primary).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(styles.Subtle).Padding(0, 2)

	s.NotificationSuccess = lipgloss.NewStyle().Foreground(styles.Success).Padding(0, 1)
	s.NotificationError = lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Padding(0, 1)
	s.NotificationWarning = lipgloss.NewStyle().Foreground(styles.Warning).Padding(0, 1)
	s.NotificationInfo = lipgloss.NewStyle().Foreground(styles.Info).Padding(0, 1)

	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Toast = styles.ToastStyle
	s.StatusBar = styles.StatusBarStyle
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(styles.Primary)
	s.Subtle = lipgloss.NewStyle().Foreground(styles.Subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(styles.Secondary)
	return s
}

// Model is the root Bubble Tea model of the viewer. It follows the
// manager's events; it never runs the pipeline itself.
type Model struct {
	services     *services.Manager
	eventChannel chan services.ServiceEvent
	state        *State

	tabs      []Tab
	activeTab TabID
	showHelp  bool

	keymap  KeyMap
	styles  Styles
	spinner components.LoadingSpinner
	now     func() time.Time

	width, height int
	ready         bool
}

// NewModel returns a viewer on mgr. A nil manager gives a static viewer.
func NewModel(mgr *services.Manager) *Model {
	return &Model{
		activeTab: TabUsers,
		tabs:      defaultTabs(),
		state:     NewState(),
		services:  mgr,
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   components.NewSpinner("Collecting usage"),
		now:       time.Now,
	}
}

func (m *Model) GetState() *State {
	return m.state
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// IsReady reports whether the terminal size is known.
func (m *Model) IsReady() bool {
	return m.ready
}

// Init subscribes to the manager and starts the first run.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Init(),
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))
		if res := m.services.Latest(); res != nil {
			m.setResult(res)
		}
	}

	for _, tab := range m.tabs {
		cmds = append(cmds, tab.Init())
	}

	return tea.Batch(cmds...)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
	case tea.KeyMsg:
		if cmd, handled := m.handleKeyMsg(msg); handled {
			return m, cmd
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	default:
		cmds = append(cmds, m.handleAppMsg(msg)...)
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleAppMsg(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())
	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		if m.services.Latest() == nil {
			cmds = append(cmds, refreshCmd(m.services))
		}
	case ServiceEventMsg:
		if cmd := m.handleServiceEvent(msg.Event); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if m.eventChannel != nil {
			cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))
		}
	case RefreshMsg:
		if m.services != nil {
			cmds = append(cmds, refreshCmd(m.services))
		}
	case RefreshRefusedMsg:
		cmds = append(cmds, notifyWarningCmd("A run is already in progress"))
	case ExportResultMsg:
		cmds = append(cmds, m.handleExportResult(msg))
	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		if msg.Duration > 0 {
			cmds = append(cmds, clearNotificationCmd(id, msg.Duration))
		}
	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)
	case TabSwitchMsg:
		m.switchTab(msg.Tab)
	}
	return cmds
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true
	m.updateTabSizes()
}

func (m *Model) handleExportResult(msg ExportResultMsg) tea.Cmd {
	if msg.Error != nil {
		return notifyErrorCmd(fmt.Sprintf("Export failed: %v", msg.Error))
	}
	m.state.SetExported(msg.Paths)
	names := make([]string, len(msg.Paths))
	for i, p := range msg.Paths {
		names[i] = filepath.Base(p)
	}
	return notifySuccessCmd("Wrote " + strings.Join(names, ", "))
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) >= len(m.tabs) {
		return nil
	}
	var cmd tea.Cmd
	m.tabs[m.activeTab], cmd = m.tabs[m.activeTab].Update(msg)
	return cmd
}

func (m *Model) updateTabSizes() {
	contentHeight := max(0, m.height-chromeHeight)
	for _, tab := range m.tabs {
		tab.SetSize(m.width, contentHeight)
	}
}

func (m *Model) switchTab(id TabID) {
	if int(id) < 0 || int(id) >= len(m.tabs) {
		return
	}
	m.activeTab = id
}

func (m *Model) setResult(res *services.Result) {
	m.state.SetResult(res)
	for _, tab := range m.tabs {
		tab.SetResult(res)
	}
}

// handleKeyMsg handles global keys. Unhandled keys go to the active tab.
func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit, true

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil, true

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
			return nil, true
		}

	case key.Matches(msg, m.keymap.NextTab):
		m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
		return nil, true

	case key.Matches(msg, m.keymap.PrevTab):
		m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))
		return nil, true

	case key.Matches(msg, m.keymap.Refresh):
		if m.services == nil {
			return nil, true
		}
		return refreshCmd(m.services), true

	case key.Matches(msg, m.keymap.Export):
		if m.services == nil {
			return nil, true
		}
		if m.state.Result() == nil {
			return notifyWarningCmd("Nothing to export yet"), true
		}
		return exportCmd(m.services), true
	}

	for i, b := range m.keymap.Tabs {
		if key.Matches(msg, b) {
			m.switchTab(TabID(i))
			return nil, true
		}
	}
	return nil, false
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) tea.Cmd {
	switch e := event.(type) {
	case services.RunStartedEvent:
		m.state.SetRunning(true)
		m.spinner.Start("Collecting usage", m.now())
		m.state.SetLoadingNotification("Collecting usage...")

	case services.RunCompletedEvent:
		m.setResult(e.Result)
		m.state.ClearLoadingNotification()
		return notifySuccessCmd(fmt.Sprintf("Report ready for %s", e.Result.Interval))

	case services.ExportedEvent:
		m.state.SetExported(e.Paths)

	case services.RosterChangedEvent:
		return notifyInfoCmd(filepath.Base(e.Path) + " changed, re-running")

	case services.ErrorEvent:
		if e.Service == "pipeline" {
			m.state.SetRunning(false)
			m.state.ClearLoadingNotification()
		}
		return notifyErrorCmd(describeError(e))
	}

	return nil
}

// describeError keeps a toast to one line. A failed accounting command is
// shown as the command and the first line of its stderr.
func describeError(e services.ErrorEvent) string {
	msg := e.Error.Error()
	var subErr *accounting.SubprocessError
	if errors.As(e.Error, &subErr) {
		msg = strings.Join(subErr.Command, " ") + " failed"
		if line, _, _ := strings.Cut(strings.TrimSpace(subErr.Stderr), "\n"); line != "" {
			msg += ": " + line
		}
	}
	msg, _, _ = strings.Cut(msg, "\n")
	return fmt.Sprintf("[%s] %s", e.Service, msg)
}
