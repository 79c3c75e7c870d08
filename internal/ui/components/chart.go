// Package components holds the widgets the viewer tabs are drawn with.
package components

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/j-veylop/sbu-reporter/internal/report"
	"github.com/j-veylop/sbu-reporter/internal/ui/styles"
)

// RenderUsageChart plots report series with a legend underneath.
// The legend colors follow the same cycle as the plotted lines.
func RenderUsageChart(series []report.Series, width, height int, caption string) string {
	if len(series) == 0 {
		return styles.HelpStyle.Render("No data available")
	}

	items := make([]LegendItem, len(series))
	for i, s := range series {
		items[i] = LegendItem{Label: s.Label, Color: lipgloss.Color(report.Palette[i%len(report.Palette)])}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		report.RenderASCII(series, width, height, caption), "", RenderLegend(items))
}

// peak is the largest value, NaN ignored, or 1 when nothing is positive
// so callers can divide by it.
func peak(values []float64) float64 {
	m := 0.0
	for _, v := range values {
		if v > m {
			m = v
		}
	}
	if m == 0 {
		return 1
	}
	return m
}

// RenderBarChart draws one right-aligned label and horizontal bar per value.
func RenderBarChart(values []float64, labels []string, width int) string {
	if len(values) == 0 {
		return ""
	}
	top := peak(values)

	labelWidth := 0
	for _, l := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(l))
	}
	// label, " │", and a " 12345.6" value
	barWidth := max(width-labelWidth-12, 10)

	lines := make([]string, len(values))
	for i, v := range values {
		var label string
		if i < len(labels) {
			label = labels[i]
		}
		n := max(int(v/top*float64(barWidth)), 0)
		lines[i] = fmt.Sprintf("%*s │%s %.1f", labelWidth, label, strings.Repeat("█", n), v)
	}
	return strings.Join(lines, "\n")
}

var sparkChars = []rune("▁▂▃▄▅▆▇█")

// RenderSparkline draws values as one block character each, sampling down
// to width. Months without data draw as the lowest block.
func RenderSparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return ""
	}
	top := peak(values)
	step := max(float64(len(values))/float64(width), 1)

	var b strings.Builder
	for i := 0; i < width; i++ {
		idx := int(float64(i) * step)
		if idx >= len(values) {
			break
		}
		v := values[idx]
		if math.IsNaN(v) {
			v = 0
		}
		level := int(v / top * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[min(max(level, 0), len(sparkChars)-1)])
	}
	return b.String()
}

// LegendItem is one colored legend entry.
type LegendItem struct {
	Label string
	Color lipgloss.Color
}

// RenderLegend puts one entry per line.
func RenderLegend(items []LegendItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = lipgloss.NewStyle().Foreground(item.Color).Render("■") + " " + item.Label
	}
	return strings.Join(lines, "\n")
}
