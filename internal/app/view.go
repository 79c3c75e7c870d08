package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/j-veylop/sbu-reporter/internal/ui/components"
	"github.com/j-veylop/sbu-reporter/internal/ui/styles"
)

// chromeHeight is the navbar (tabs plus border) and the status bar.
const chromeHeight = 3

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	switch {
	case !m.ready:
		b.WriteString(m.styles.Content.Render(m.spinner.ViewWithLabel()))
		return b.String()
	case m.state.IsRunning() && m.state.Result() == nil:
		b.WriteString(components.RenderSpinnerCentered(m.spinner, m.width, max(m.height-chromeHeight, 1)))
	default:
		b.WriteString(m.tabs[m.activeTab].View())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	view := b.String()
	if m.showHelp {
		help := m.renderHelp()
		x := (m.width - lipgloss.Width(help)) / 2
		y := (m.height - lipgloss.Height(help)) / 2
		view = overlayAt(view, help, x, y)
	}
	if toasts := m.renderNotifications(); toasts != "" {
		view = overlayAt(view, toasts, m.width-lipgloss.Width(toasts)-2, 2)
	}
	return view
}

// overlayAt draws overlay over base with its top-left corner at column x,
// row y. Rows past the end of base are dropped.
func overlayAt(base, overlay string, x, y int) string {
	x, y = max(x, 0), max(y, 0)
	lines := strings.Split(base, "\n")
	width := lipgloss.Width(overlay)

	for i, row := range strings.Split(overlay, "\n") {
		if y+i >= len(lines) {
			break
		}
		line := lines[y+i]
		left := ansi.Truncate(line, x, "")
		if pad := x - lipgloss.Width(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		lines[y+i] = left + row + ansi.TruncateLeft(line, x+width, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderNavbar() string {
	tabs := make([]string, len(m.tabs))
	for i := range m.tabs {
		id := TabID(i)
		if id == m.activeTab {
			tabs[i] = m.styles.ActiveTab.Render(fmt.Sprintf("[%d] %s", i+1, id))
		} else {
			tabs[i] = m.styles.InactiveTab.Render(fmt.Sprintf(" %d  %s", i+1, id))
		}
	}
	return m.styles.TabBar.Width(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m *Model) renderStatusBar() string {
	var parts []string
	if m.state.IsRunning() {
		parts = append(parts, m.spinner.ViewElapsed(m.now()))
	} else if res := m.state.Result(); res != nil {
		parts = append(parts,
			"run "+shortID(res.ID),
			fmt.Sprintf("updated %s ago", m.state.TimeSinceUpdate().Truncate(time.Second)))
	}
	if n := len(m.state.Exported()); n > 0 {
		parts = append(parts, fmt.Sprintf("%d files exported", n))
	}
	parts = append(parts, "? help")
	return m.styles.StatusBar.Render(strings.Join(parts, "  ·  "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderNotifications stacks the active toasts, right aligned.
func (m *Model) renderNotifications() string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return ""
	}

	toasts := make([]string, len(notifications))
	for i, n := range notifications {
		style, prefix := m.notificationLook(n.Type)
		toasts[i] = m.styles.Toast.Render(style.Render(prefix + " " + n.Message))
	}
	return lipgloss.JoinVertical(lipgloss.Right, toasts...)
}

func (m *Model) notificationLook(t NotificationType) (lipgloss.Style, string) {
	switch t {
	case NotificationSuccess:
		return m.styles.NotificationSuccess, "[OK]"
	case NotificationError:
		return m.styles.NotificationError, "[ERR]"
	case NotificationWarning:
		return m.styles.NotificationWarning, "[WARN]"
	case NotificationLoading:
		return m.styles.NotificationInfo, m.spinner.View()
	}
	return m.styles.NotificationInfo, "[INFO]"
}

func (m *Model) renderHelp() string {
	row := func(k, desc string) string { return fmt.Sprintf("  %-10s %s", k, desc) }

	lines := []string{m.styles.Title.Render("Keyboard Shortcuts"), ""}
	for _, group := range m.keymap.FullHelp() {
		for _, binding := range group {
			lines = append(lines, row(binding.Help().Key, binding.Help().Desc))
		}
		lines = append(lines, "")
	}

	lines = append(lines, m.styles.Highlight.Render(m.activeTab.String()+" Tab"))
	for _, binding := range m.tabs[m.activeTab].ShortHelp() {
		lines = append(lines, row(binding.Help().Key, binding.Help().Desc))
	}
	lines = append(lines, "", m.styles.Subtle.Render("Press ? or Esc to close"))

	return styles.HelpPanelStyle.Render(strings.Join(lines, "\n"))
}
