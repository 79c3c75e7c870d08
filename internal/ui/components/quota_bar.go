package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/sbu-reporter/internal/models"
	"github.com/j-veylop/sbu-reporter/internal/ui/styles"
)

const (
	barLowColor  = "#51cf66"
	barHighColor = "#ff6b6b"
)

// QuotaBar renders how much of its requested SBU a project has used.
type QuotaBar struct {
	progress progress.Model
}

// NewQuotaBar creates a new quota bar with gradient colors.
func NewQuotaBar() QuotaBar {
	return NewQuotaBarWithWidth(30)
}

// NewQuotaBarWithWidth creates a quota bar with a specific width.
func NewQuotaBarWithWidth(width int) QuotaBar {
	p := progress.New(
		progress.WithScaledGradient(barLowColor, barHighColor),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	return QuotaBar{progress: p}
}

// View renders the quota bar with label and percentage.
// Usage past the quota fills the bar and shows the real percentage.
func (q QuotaBar) View(percent float64, label string, width int) string {
	q.progress.Width = max(width-30, 10) // Reserve space for label and percentage

	bar := q.progress.ViewAs(clampFraction(percent))

	percentStr := styles.GetUsageStyle(percent).
		Width(7).
		Align(lipgloss.Right).
		Render(fmt.Sprintf("%.0f%%", percent))

	labelStr := styles.ProgressLabelStyle.Width(15).Render(label)

	return lipgloss.JoinHorizontal(
		lipgloss.Center,
		labelStr,
		bar,
		" ",
		percentStr,
	)
}

// RenderQuotaBars stacks one bar per project of a percentage table, using
// each project's final cumulative percentage.
func RenderQuotaBars(t models.ProjectTable, width int) string {
	bar := NewQuotaBar()
	var lines []string
	for _, row := range t.Rows {
		if row.Info.Project == "" || row.Info.Project == models.SumKey {
			continue
		}
		if !row.Sum.Valid {
			lines = append(lines, styles.ProgressLabelStyle.Width(15).Render(row.Info.Project)+
				styles.HelpStyle.Render("no quota requested"))
			continue
		}
		lines = append(lines, bar.View(row.Sum.V, row.Info.Project, width))
	}
	if len(lines) == 0 {
		return styles.HelpStyle.Render("No projects")
	}
	return strings.Join(lines, "\n")
}

func clampFraction(percent float64) float64 {
	return min(max(percent/100, 0), 1)
}
