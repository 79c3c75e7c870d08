package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/j-veylop/sbu-reporter/internal/models"
	"github.com/j-veylop/sbu-reporter/internal/report"
	"github.com/j-veylop/sbu-reporter/internal/services"
	"github.com/j-veylop/sbu-reporter/internal/ui/components"
	"github.com/j-veylop/sbu-reporter/internal/ui/styles"
)

// renderFunc produces a tab's content for a result at the given width.
type renderFunc func(res *services.Result, width int) string

// reportTab shows one view of a result in a scrollable viewport.
type reportTab struct {
	title    string
	render   renderFunc
	result   *services.Result
	viewport viewport.Model
	width    int
	height   int
}

func newReportTab(title string, render renderFunc) *reportTab {
	return &reportTab{
		title:    title,
		render:   render,
		viewport: viewport.New(0, 0),
	}
}

func (t *reportTab) Init() tea.Cmd { return nil }

func (t *reportTab) Update(msg tea.Msg) (Tab, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return t, cmd
}

func (t *reportTab) View() string {
	if t.result == nil {
		return styles.DocStyle.Render(styles.HelpStyle.Render("No report yet. Press r to run."))
	}
	return t.viewport.View()
}

func (t *reportTab) SetSize(width, height int) {
	t.width, t.height = width, height
	t.viewport.Width = width
	t.viewport.Height = height
	t.refresh()
}

func (t *reportTab) SetResult(res *services.Result) {
	t.result = res
	t.refresh()
	t.viewport.GotoTop()
}

func (t *reportTab) refresh() {
	if t.result == nil {
		return
	}
	t.viewport.SetContent(t.render(t.result, t.width))
}

func (t *reportTab) ShortHelp() []key.Binding {
	km := t.viewport.KeyMap
	return []key.Binding{km.Up, km.Down, km.PageUp, km.PageDown}
}

func (t *reportTab) FullHelp() [][]key.Binding {
	return [][]key.Binding{t.ShortHelp()}
}

// defaultTabs returns the Users, Projects, Cumulative, Percent and Chart tabs.
func defaultTabs() []Tab {
	return []Tab{
		newReportTab(TabUsers.String(), renderUsers),
		newReportTab(TabProjects.String(), renderProjects),
		newReportTab(TabCumulative.String(), renderCumulative),
		newReportTab(TabPercent.String(), renderPercent),
		newReportTab(TabChart.String(), renderChart),
	}
}

func header(res *services.Result, title string) string {
	return styles.TitleStyle.Render(title) + "\n" +
		styles.SubTitleStyle.Render(fmt.Sprintf("%s  %s to %s",
			res.Project, res.Interval.StartString(), res.Interval.EndString())) + "\n\n"
}

func renderUsers(res *services.Result, _ int) string {
	return header(res, "SBU usage per user") + report.RenderUserTable(res.Tables.Users)
}

func renderProjects(res *services.Result, width int) string {
	t := res.Tables.Projects.ProjectTable
	var totals []float64
	var codes []string
	for _, row := range t.Rows {
		if row.Info.Project == "" || row.Info.Project == models.SumKey {
			continue
		}
		totals = append(totals, row.Sum.Or(0))
		codes = append(codes, row.Info.Project)
	}
	out := header(res, "SBU usage per project") + report.RenderTable(t)
	if len(totals) > 0 {
		out += "\n\n" + styles.SubTitleStyle.Render("Total per project") + "\n" +
			components.RenderBarChart(totals, codes, max(width-4, 40))
	}
	return out
}

func renderCumulative(res *services.Result, _ int) string {
	return header(res, "Accumulated SBU usage") + report.RenderTable(res.Tables.Cumulative.ProjectTable)
}

func renderPercent(res *services.Result, width int) string {
	t := res.Tables.Percentage.ProjectTable
	return header(res, "Percentage of requested SBU") +
		components.RenderQuotaBars(t, max(width-4, 40)) + "\n\n" +
		report.RenderTable(t)
}

func renderChart(res *services.Result, width int) string {
	chartWidth := max(width-len("100% ")-8, 20)

	var b strings.Builder
	b.WriteString(header(res, "Charts"))
	b.WriteString(components.RenderUsageChart(
		report.PlotSeries(res.Tables.Cumulative.ProjectTable, false), chartWidth, 10, "Accumulated SBU usage"))
	b.WriteString("\n\n")
	b.WriteString(components.RenderUsageChart(
		report.PlotSeries(res.Tables.Percentage.ProjectTable, true), chartWidth, 10, "Percentage of requested SBU"))
	b.WriteString("\n\n")

	b.WriteString(styles.SubTitleStyle.Render("Monthly usage"))
	b.WriteString("\n")
	for _, s := range report.PlotSeries(res.Tables.Projects.ProjectTable, false) {
		fmt.Fprintf(&b, "%-12s %s\n", s.Project, components.RenderSparkline(s.Values, chartWidth))
	}
	return b.String()
}
