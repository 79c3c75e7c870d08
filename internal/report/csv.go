package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

// Super-column labels of the two-level header.
const (
	infoHeader  = "info"
	monthHeader = "Month"
)

// projectInfoColumns are the info sub-columns of the per-project tables.
var projectInfoColumns = []string{"description", "SBU requested", "PI", "active"}

// WriteCSV writes the user, project, cumulative and percentage tables one
// after another, separated by two blank rows.
func WriteCSV(w io.Writer, t Tables) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writeUserTable(writer, t.Users); err != nil {
		return err
	}
	for _, pt := range []models.ProjectTable{t.Projects.ProjectTable, t.Cumulative.ProjectTable, t.Percentage.ProjectTable} {
		if err := writeSeparator(writer); err != nil {
			return err
		}
		if err := writeProjectTable(writer, pt); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func writeSeparator(writer *csv.Writer) error {
	for range 2 {
		if err := writer.Write([]string{}); err != nil {
			return err
		}
	}
	return nil
}

func headerRows(index string, info []string, months []models.Month) [][]string {
	super := []string{""}
	sub := []string{index}
	for _, c := range info {
		super = append(super, infoHeader)
		sub = append(sub, c)
	}
	for _, m := range months {
		super = append(super, monthHeader)
		sub = append(sub, m.String())
	}
	super = append(super, monthHeader)
	sub = append(sub, models.SumKey)
	return [][]string{super, sub}
}

func writeUserTable(writer *csv.Writer, m *models.Matrix) error {
	if err := writer.WriteAll(headerRows("username", models.InfoColumns, m.Months)); err != nil {
		return err
	}
	for _, row := range append(append([]models.UserRow(nil), m.Rows...), m.Total) {
		record := []string{
			row.Key(),
			row.Info.Project,
			row.Info.Name,
			row.Info.Description,
			formatFloat(row.Info.Requested),
			row.Info.PI,
			strconv.FormatBool(row.Info.Active),
		}
		record = append(record, cells(row.Cells, row.Sum)...)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeProjectTable(writer *csv.Writer, t models.ProjectTable) error {
	if err := writer.WriteAll(headerRows("project", projectInfoColumns, t.Months)); err != nil {
		return err
	}
	for _, row := range append(append([]models.ProjectRow(nil), t.Rows...), t.Total) {
		record := []string{
			row.Key(),
			row.Info.Description,
			formatFloat(row.Info.Requested),
			row.Info.PI,
			strings.Join(row.ActiveNames, ", "),
		}
		record = append(record, cells(row.Cells, row.Sum)...)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// cells formats month values; a cell without data is written as 0.
func cells(values []models.Value, sum models.Value) []string {
	out := make([]string, 0, len(values)+1)
	for _, v := range values {
		out = append(out, formatFloat(v.Or(0)))
	}
	return append(out, formatFloat(sum.Or(0)))
}
