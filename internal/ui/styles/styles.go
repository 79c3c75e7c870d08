// Package styles holds the lipgloss theme of the report viewer.
package styles

import "github.com/charmbracelet/lipgloss"

// Quota thresholds, in percent of the requested SBU.
const (
	QuotaWarnPercent = 80
	QuotaOverPercent = 100
)

var (
	Primary   = lipgloss.Color("#7D56F4")
	Secondary = lipgloss.Color("#5FAFFF")
	Subtle    = lipgloss.Color("#5C5C5C")

	Success = lipgloss.Color("#04B575")
	Error   = lipgloss.Color("#FF5F87")
	Warning = lipgloss.Color("#FF8C00")
	Info    = lipgloss.Color("#5FAFFF")

	PanelBackground = lipgloss.Color("#262626")
	TextSecondary   = lipgloss.Color("#A8A8A8")
	TextMuted       = lipgloss.Color("#6C6C6C")
)

var (
	// TitleStyle heads each tab.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	// SubTitleStyle shows the project and interval under a title.
	SubTitleStyle = lipgloss.NewStyle().Foreground(Secondary)

	DocStyle = lipgloss.NewStyle().Margin(1, 2)

	ProgressLabelStyle = lipgloss.NewStyle().Foreground(TextSecondary)

	HelpStyle = lipgloss.NewStyle().Foreground(TextMuted).Italic(true)

	HelpPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(Primary).
			Background(PanelBackground).
			Padding(1, 3)

	StatusBarStyle = lipgloss.NewStyle().Foreground(TextSecondary).Padding(0, 1)

	ToastStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Primary).
			Padding(0, 1)
)

var quotaStyles = [...]lipgloss.Style{
	lipgloss.NewStyle().Foreground(Success),
	lipgloss.NewStyle().Foreground(Warning),
	lipgloss.NewStyle().Foreground(Error).Bold(true),
}

// GetUsageStyle colors a quota percentage: green, orange from
// QuotaWarnPercent, bold red from QuotaOverPercent.
func GetUsageStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= QuotaOverPercent:
		return quotaStyles[2]
	case percent >= QuotaWarnPercent:
		return quotaStyles[1]
	}
	return quotaStyles[0]
}

// CenterBoth places content in the middle of a width x height box.
func CenterBoth(content string, width, height int) string {
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}
