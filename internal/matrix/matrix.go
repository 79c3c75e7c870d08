// Package matrix builds the user by month usage matrix.
package matrix

import (
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/j-veylop/sbu-reporter/internal/accounting"
	"github.com/j-veylop/sbu-reporter/internal/daterange"
	"github.com/j-veylop/sbu-reporter/internal/logger"
	"github.com/j-veylop/sbu-reporter/internal/models"
)

// DefaultActiveThreshold is the number of hours above which a user counts as active.
const DefaultActiveThreshold = 1.0

// Mode selects how usage is queried.
type Mode string

const (
	// ModeUser issues one query per roster user.
	ModeUser Mode = "user"
	// ModeProject issues one query per project.
	ModeProject Mode = "project"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeUser:
		return ModeUser, nil
	case ModeProject:
		return ModeProject, nil
	default:
		return "", fmt.Errorf("unknown collection mode %q", s)
	}
}

// Source supplies usage records.
type Source interface {
	CollectUser(ctx context.Context, user string, iv daterange.Interval, project string) ([]models.UsageRecord, error)
	CollectProject(ctx context.Context, project string, iv daterange.Interval) ([]models.UsageRecord, error)
}

// Options tunes Build.
type Options struct {
	Mode Mode
	// Project restricts collection to one account. Empty means all.
	Project string
	// Concurrency bounds parallel queries. Values below 1 mean sequential.
	Concurrency int
	// ActiveThreshold overrides DefaultActiveThreshold when positive.
	ActiveThreshold float64
}

// Build queries source for every roster user and assembles the matrix.
func Build(ctx context.Context, r *models.Roster, iv daterange.Interval, source Source, opts Options) (*models.Matrix, error) {
	if opts.Mode == "" {
		opts.Mode = ModeUser
	}
	threshold := opts.ActiveThreshold
	if threshold <= 0 {
		threshold = DefaultActiveThreshold
	}

	m := newMatrix(r, iv.Months())

	var (
		batches [][]models.UsageRecord
		err     error
	)
	switch opts.Mode {
	case ModeUser:
		batches, err = collectUsers(ctx, r, iv, source, opts)
	case ModeProject:
		batches, err = collectProjects(ctx, r, iv, source, opts)
	default:
		return nil, fmt.Errorf("unknown collection mode %q", opts.Mode)
	}
	if err != nil {
		return nil, err
	}

	// Batches merge in query order so later records win.
	for _, batch := range batches {
		merge(m, batch)
	}
	summarize(m, r, threshold)

	logger.Debug("Built usage matrix", "users", len(m.Rows), "months", len(m.Months), "mode", opts.Mode)
	return m, nil
}

func newMatrix(r *models.Roster, months []models.Month) *models.Matrix {
	m := &models.Matrix{
		Months: months,
		Rows:   make([]models.UserRow, len(r.Entries)),
	}
	for i, e := range r.Entries {
		m.Rows[i] = models.UserRow{Info: e, Cells: make([]models.Value, len(months))}
	}
	return m
}

func collectUsers(ctx context.Context, r *models.Roster, iv daterange.Interval, source Source, opts Options) ([][]models.UsageRecord, error) {
	users := r.Usernames()
	batches := make([][]models.UsageRecord, len(users))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i, user := range users {
		g.Go(func() error {
			records, err := source.CollectUser(ctx, user, iv, opts.Project)
			if err != nil {
				return err
			}
			batches[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func collectProjects(ctx context.Context, r *models.Roster, iv daterange.Interval, source Source, opts Options) ([][]models.UsageRecord, error) {
	projects := r.Projects()
	if opts.Project != "" {
		projects = []string{opts.Project}
	}
	batches := make([][]models.UsageRecord, len(projects))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Concurrency, 1))
	for i, project := range projects {
		g.Go(func() error {
			records, err := source.CollectProject(ctx, project, iv)
			if err != nil {
				return err
			}
			if err := checkMembers(r, project, records); err != nil {
				return err
			}
			batches[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

// checkMembers requires every reported user to belong to project in the roster.
func checkMembers(r *models.Roster, project string, records []models.UsageRecord) error {
	members := r.Members(project)
	var unknown []string
	for _, rec := range records {
		if !slices.Contains(members, rec.User) && !slices.Contains(unknown, rec.User) {
			unknown = append(unknown, rec.User)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return &accounting.UserMismatchError{Scope: project, Unexpected: unknown}
}

func merge(m *models.Matrix, records []models.UsageRecord) {
	for _, rec := range records {
		row, ok := m.Row(rec.User)
		if !ok {
			logger.Debug("Dropping usage of unknown user", "user", rec.User)
			continue
		}
		col := m.MonthIndex(rec.Month)
		if col < 0 {
			logger.Debug("Dropping usage outside interval", "user", rec.User, "month", rec.Month)
			continue
		}
		row.Cells[col] = models.Some(rec.Hours())
	}
}

func summarize(m *models.Matrix, r *models.Roster, threshold float64) {
	total := models.UserRow{
		Info: models.Entry{
			Username:  models.SumKey,
			Project:   models.SumKey,
			Requested: requestedTotal(r),
		},
		Cells: make([]models.Value, len(m.Months)),
	}

	var grand float64
	for i := range m.Rows {
		row := &m.Rows[i]
		var sum float64
		for j, v := range row.Cells {
			sum += v.Or(0)
			total.Cells[j] = total.Cells[j].Add(v)
		}
		row.Sum = models.Some(sum)
		row.Info.Active = sum > threshold
		grand += sum
	}
	total.Sum = models.Some(grand)
	m.Total = total
}

// requestedTotal sums the quota of each distinct project once.
func requestedTotal(r *models.Roster) float64 {
	var total float64
	seen := make(map[string]bool)
	for _, e := range r.Entries {
		if seen[e.Project] {
			continue
		}
		seen[e.Project] = true
		total += e.Requested
	}
	return total
}
