package report

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

// unassigned is the project code of users without a project.
const unassigned = "None"

// Series is one plotted line.
type Series struct {
	Project string
	Label   string
	// Values holds one point per month; NaN marks a month without data.
	Values []float64
	Max    float64
}

var printer = message.NewPrinter(language.English)

// PlotSeries turns a project table into chart lines. The totals row and
// unassigned projects are left out. Percent labels show whole percents.
func PlotSeries(t models.ProjectTable, percent bool) []Series {
	var out []Series
	for _, row := range t.Rows {
		project := row.Info.Project
		if project == "" || project == unassigned || project == models.SumKey {
			continue
		}

		s := Series{Project: project, Values: make([]float64, len(row.Cells))}
		for i, v := range row.Cells {
			s.Values[i] = v.Float()
			if v.Valid && v.V > s.Max {
				s.Max = v.V
			}
		}

		if percent {
			s.Label = printer.Sprintf("%s (%s): %d%%", project, row.Info.PI, int64(s.Max))
		} else {
			s.Label = printer.Sprintf("%s (%s): %d", project, row.Info.PI, int64(math.Round(s.Max)))
		}
		out = append(out, s)
	}
	return out
}

// MonthLabels returns the axis labels for months.
func MonthLabels(months []models.Month) []string {
	labels := make([]string, len(months))
	for i, m := range months {
		labels[i] = m.String()
	}
	return labels
}
