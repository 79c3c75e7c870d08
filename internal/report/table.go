package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

const noData = "-"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	keyStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// RenderTable renders a project table for the terminal.
func RenderTable(t models.ProjectTable) string {
	headers := append([]string{"project", "PI", "active"}, MonthLabels(t.Months)...)
	headers = append(headers, models.SumKey)

	var rows [][]string
	for _, row := range append(append([]models.ProjectRow(nil), t.Rows...), t.Total) {
		record := []string{row.Key(), row.Info.PI, strings.Join(row.ActiveUsers, ",")}
		rows = append(rows, append(record, displayCells(row.Cells, row.Sum)...))
	}
	return render(headers, rows, 3)
}

// RenderUserTable renders the user matrix for the terminal.
func RenderUserTable(m *models.Matrix) string {
	headers := append([]string{"username", "project", "name"}, MonthLabels(m.Months)...)
	headers = append(headers, models.SumKey)

	var rows [][]string
	for _, row := range append(append([]models.UserRow(nil), m.Rows...), m.Total) {
		record := []string{row.Key(), row.Info.Project, row.Info.Name}
		rows = append(rows, append(record, displayCells(row.Cells, row.Sum)...))
	}
	return render(headers, rows, 3)
}

func render(headers []string, rows [][]string, textColumns int) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#636363"))).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col < textColumns:
				return keyStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

func displayCells(values []models.Value, sum models.Value) []string {
	out := make([]string, 0, len(values)+1)
	for _, v := range append(append([]models.Value(nil), values...), sum) {
		if !v.Valid {
			out = append(out, noData)
			continue
		}
		out = append(out, fmt.Sprintf("%.1f", v.V))
	}
	return out
}
