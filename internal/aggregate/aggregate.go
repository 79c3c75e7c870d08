// Package aggregate derives the per-project views of a usage matrix.
package aggregate

import (
	"math"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

// DefaultPrecision is the number of decimals kept in percentages.
const DefaultPrecision = 2

// ProjectAggregate holds usage summed per project.
type ProjectAggregate struct {
	models.ProjectTable
}

// CumulativeAggregate holds running usage totals per project.
type CumulativeAggregate struct {
	models.ProjectTable
}

// PercentageAggregate holds running totals as a percentage of each project's quota.
type PercentageAggregate struct {
	models.ProjectTable
}

// PercentOptions tunes Percentage.
type PercentOptions struct {
	// Precision is the number of decimals kept. Negative disables rounding.
	Precision int
}

// DefaultPercentOptions rounds to DefaultPrecision decimals.
func DefaultPercentOptions() PercentOptions {
	return PercentOptions{Precision: DefaultPrecision}
}

// Rollup sums the matrix rows of each project, in roster order.
func Rollup(m *models.Matrix) ProjectAggregate {
	t := models.ProjectTable{Months: append([]models.Month(nil), m.Months...)}

	for _, u := range m.Rows {
		row, ok := t.Row(u.Info.Project)
		if !ok {
			t.Rows = append(t.Rows, models.ProjectRow{
				Info:  projectInfo(u.Info),
				Cells: make([]models.Value, len(m.Months)),
			})
			row = &t.Rows[len(t.Rows)-1]
		}

		for i, v := range u.Cells {
			row.Cells[i] = row.Cells[i].Add(v)
		}
		row.Sum = row.Sum.Add(u.Sum)
		if u.Info.Active {
			row.ActiveUsers = append(row.ActiveUsers, u.Info.Username)
			row.ActiveNames = append(row.ActiveNames, u.Info.Name)
		}
	}

	for i := range t.Rows {
		if !t.Rows[i].Sum.Valid {
			t.Rows[i].Sum = models.Some(0)
		}
	}

	t.Total = models.ProjectRow{
		Info:  projectInfo(m.Total.Info),
		Cells: append([]models.Value(nil), m.Total.Cells...),
		Sum:   m.Total.Sum,
	}
	return ProjectAggregate{t}
}

// Cumulative replaces every cell with the running total up to that month.
// Cells without data stay empty; Sum is the final running total.
func Cumulative(p ProjectAggregate) CumulativeAggregate {
	t := p.Clone()
	for i := range t.Rows {
		accumulate(&t.Rows[i])
	}
	accumulate(&t.Total)
	return CumulativeAggregate{t}
}

func accumulate(row *models.ProjectRow) {
	var running float64
	for i, v := range row.Cells {
		if !v.Valid {
			continue
		}
		running += v.V
		row.Cells[i] = models.Some(running)
	}
	row.Sum = models.Some(running)
}

// Percentage expresses each cumulative cell as a percentage of the project quota.
// Rows without a positive quota hold no data.
func Percentage(c CumulativeAggregate, opts PercentOptions) PercentageAggregate {
	t := c.Clone()
	for i := range t.Rows {
		toPercent(&t.Rows[i], opts.Precision)
	}
	toPercent(&t.Total, opts.Precision)
	return PercentageAggregate{t}
}

func toPercent(row *models.ProjectRow, precision int) {
	quota := row.Info.Requested
	convert := func(v models.Value) models.Value {
		if !v.Valid || quota <= 0 {
			return models.None()
		}
		return models.Some(round(v.V/quota*100, precision))
	}
	for i, v := range row.Cells {
		row.Cells[i] = convert(v)
	}
	row.Sum = convert(row.Sum)
}

func round(v float64, precision int) float64 {
	if precision < 0 {
		return v
	}
	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

func projectInfo(e models.Entry) models.ProjectInfo {
	return models.ProjectInfo{
		Project:     e.Project,
		PI:          e.PI,
		Description: e.Description,
		Requested:   e.Requested,
	}
}
