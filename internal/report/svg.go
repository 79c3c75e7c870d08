package report

import (
	"fmt"
	"html/template"
	"io"
	"math"
	"strings"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/aggregate"
)

// Chart defaults.
const (
	DefaultWidth       = 960
	DefaultPanelHeight = 360
	DefaultPadding     = 56.0
	DefaultTicks       = 5
	legendWidth        = 260.0
)

// Palette cycles through series colors.
var Palette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

// PanelOpts customises one chart panel.
type PanelOpts struct {
	Title     string
	YLabel    string
	Legend    string
	Padding   float64
	TickCount int
	AxisColor string
	GridColor string
}

// RenderSVG draws the cumulative usage and percentage charts stacked in one image.
func RenderSVG(w io.Writer, cum aggregate.CumulativeAggregate, pct aggregate.PercentageAggregate, now time.Time) error {
	labels := MonthLabels(cum.Months)
	top := PlotSeries(cum.ProjectTable, false)
	bottom := PlotSeries(pct.ProjectTable, true)
	if len(labels) == 0 {
		return fmt.Errorf("svg: no months to plot")
	}

	height := 2 * DefaultPanelHeight
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" width=\"%d\" height=\"%d\" role=\"img\">",
		DefaultWidth, height, DefaultWidth, height))
	b.WriteString("<rect width=\"100%\" height=\"100%\" fill=\"#ffffff\"></rect>")

	writePanel(&b, 0, DefaultWidth, DefaultPanelHeight, labels, top, PanelOpts{
		Title:  "Accumulated SBU usage: " + now.Format("02 Jan 2006"),
		YLabel: "SBUs (System Billing Units)  /  hours",
		Legend: "Project: SBU",
	})
	writePanel(&b, DefaultPanelHeight, DefaultWidth, DefaultPanelHeight, labels, bottom, PanelOpts{
		Title:  "Accumulated % SBU usage",
		YLabel: "SBU usage  /  %",
		Legend: "Project: %",
	})

	b.WriteString("</svg>")
	_, err := io.WriteString(w, b.String())
	return err
}

func writePanel(b *strings.Builder, y0 float64, width, height int, labels []string, series []Series, opts PanelOpts) {
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	chartWidth := float64(width) - 2*padding - legendWidth
	chartHeight := float64(height) - 2*padding
	maxVal := axisMax(series)

	step := 0.0
	if len(labels) > 1 {
		step = chartWidth / float64(len(labels)-1)
	}
	xAt := func(i int) float64 {
		if len(labels) > 1 {
			return padding + float64(i)*step
		}
		return padding + chartWidth/2
	}
	yAt := func(v float64) float64 {
		return y0 + padding + chartHeight - v/maxVal*chartHeight
	}

	titleID := makeID(opts.Title, "title")
	b.WriteString(fmt.Sprintf("<g aria-labelledby=\"%s\">", titleID))
	b.WriteString(fmt.Sprintf("<text id=\"%s\" x=\"%.2f\" y=\"%.2f\" font-size=\"16\" text-anchor=\"middle\" fill=\"#0f172a\">%s</text>",
		titleID, padding+chartWidth/2, y0+padding/2, template.HTMLEscapeString(opts.Title)))

	// Grid lines and ticks
	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		value := maxVal * ratio
		y := yAt(value)
		b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>",
			padding, y, padding+chartWidth, y, gridColor))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%s</text>",
			padding-6, y+4, axisColor, template.HTMLEscapeString(formatTick(value))))
	}

	// Axes
	base := y0 + padding + chartHeight
	b.WriteString(fmt.Sprintf("<g stroke=\"%s\">", axisColor))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, y0+padding, padding, base))
	b.WriteString(fmt.Sprintf("<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", padding, base, padding+chartWidth, base))
	b.WriteString("</g>")
	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"11\" text-anchor=\"middle\" transform=\"rotate(-90 %.2f %.2f)\">%s</text>",
		padding/4, y0+padding+chartHeight/2, axisColor, padding/4, y0+padding+chartHeight/2, template.HTMLEscapeString(opts.YLabel)))

	for i, s := range series {
		color := Palette[i%len(Palette)]
		if d := linePath(s.Values, xAt, yAt); d != "" {
			b.WriteString(fmt.Sprintf("<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\"></path>", d, color))
		}
		for j, v := range s.Values {
			if math.IsNaN(v) {
				continue
			}
			b.WriteString(fmt.Sprintf("<circle cx=\"%.2f\" cy=\"%.2f\" r=\"2.5\" fill=\"%s\"></circle>", xAt(j), yAt(v), color))
		}
	}

	// X-axis labels, at most six
	every := max(len(labels)/6, 1)
	for i, label := range labels {
		if i%every != 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>",
			xAt(i), base+14, axisColor, template.HTMLEscapeString(label)))
	}

	// Legend
	lx := padding + chartWidth + 20
	ly := y0 + padding
	b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" font-size=\"12\" font-weight=\"bold\" fill=\"#0f172a\">%s</text>",
		lx, ly, template.HTMLEscapeString(opts.Legend)))
	for i, s := range series {
		y := ly + 18*float64(i+1)
		b.WriteString(fmt.Sprintf("<rect x=\"%.2f\" y=\"%.2f\" width=\"12\" height=\"3\" fill=\"%s\"></rect>", lx, y-4, Palette[i%len(Palette)]))
		b.WriteString(fmt.Sprintf("<text x=\"%.2f\" y=\"%.2f\" font-size=\"11\" fill=\"#0f172a\">%s</text>",
			lx+18, y, template.HTMLEscapeString(s.Label)))
	}
	b.WriteString("</g>")
}

// linePath builds the path data, starting a new segment after a gap.
func linePath(values []float64, xAt func(int) float64, yAt func(float64) float64) string {
	var path strings.Builder
	pen := false
	for i, v := range values {
		if math.IsNaN(v) {
			pen = false
			continue
		}
		cmd := "L"
		if !pen {
			cmd = "M"
		}
		if path.Len() > 0 {
			path.WriteString(" ")
		}
		path.WriteString(fmt.Sprintf("%s%.2f %.2f", cmd, xAt(i), yAt(v)))
		pen = true
	}
	return path.String()
}

// axisMax rounds the largest value up to one significant digit past its leading digit.
func axisMax(series []Series) float64 {
	var top float64
	for _, s := range series {
		top = math.Max(top, s.Max)
	}
	if top <= 0 {
		return 1
	}
	digits := len(fmt.Sprintf("%d", int64(top)))
	decimals := 1 - digits
	scale := math.Pow(10, float64(decimals))
	return math.Round(top*scale)/scale + 1/scale
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return fmt.Sprintf("%s-%s", cleaned, suffix)
}

func formatTick(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 10_000:
		return fmt.Sprintf("%.0fk", v/1_000)
	default:
		if math.Abs(v-math.Round(v)) < 1e-9 {
			return printer.Sprintf("%d", int64(math.Round(v)))
		}
		return fmt.Sprintf("%.2f", v)
	}
}
