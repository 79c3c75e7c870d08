package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/sbu-reporter/internal/ui/styles"
)

// LoadingSpinner is shown while the accounting tool runs. It remembers when
// the run started so the label can show how long collection has taken.
type LoadingSpinner struct {
	spinner spinner.Model
	label   string
	started time.Time
}

var spinnerLabelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary)

func NewSpinner(label string) LoadingSpinner {
	m := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(styles.Primary)),
	)
	return LoadingSpinner{spinner: m, label: label}
}

func (l LoadingSpinner) Init() tea.Cmd { return l.spinner.Tick }

func (l LoadingSpinner) Update(msg tea.Msg) (LoadingSpinner, tea.Cmd) {
	var cmd tea.Cmd
	l.spinner, cmd = l.spinner.Update(msg)
	return l, cmd
}

// Start relabels the spinner and resets its clock to now.
func (l *LoadingSpinner) Start(label string, now time.Time) {
	l.label, l.started = label, now
}

// View is the bare spinner frame.
func (l LoadingSpinner) View() string { return l.spinner.View() }

func (l LoadingSpinner) ViewWithLabel() string {
	return l.withText(l.label)
}

// ViewElapsed appends whole seconds since Start, e.g. "Collecting usage (3s)".
func (l LoadingSpinner) ViewElapsed(now time.Time) string {
	if l.started.IsZero() {
		return l.ViewWithLabel()
	}
	return l.withText(fmt.Sprintf("%s (%s)", l.label, now.Sub(l.started).Truncate(time.Second)))
}

func (l LoadingSpinner) withText(text string) string {
	return l.spinner.View() + " " + spinnerLabelStyle.Render(text)
}

// RenderSpinnerCentered draws the labelled spinner in the middle of the area.
func RenderSpinnerCentered(s LoadingSpinner, width, height int) string {
	return styles.CenterBoth(s.ViewWithLabel(), width, height)
}
