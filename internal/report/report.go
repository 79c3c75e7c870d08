// Package report renders usage tables as files and terminal output.
package report

import (
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/aggregate"
	"github.com/j-veylop/sbu-reporter/internal/models"
)

// DefaultPrefix is the file name prefix of exported reports.
const DefaultPrefix = "Cluster_usage"

// Tables bundles the four views produced by one run.
type Tables struct {
	Users      *models.Matrix
	Projects   aggregate.ProjectAggregate
	Cumulative aggregate.CumulativeAggregate
	Percentage aggregate.PercentageAggregate
}

// Filename returns prefix_DD_Mon_YYYY.ext for now.
func Filename(prefix, ext string, now time.Time) string {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	name := prefix + now.Format("_02_Jan_2006")
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	return name
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
