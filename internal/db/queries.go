package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/logger"
	"github.com/j-veylop/sbu-reporter/internal/models"
)

// Table kinds stored in the info and usage tables.
const (
	KindUsers      = "users"
	KindProjects   = "projects"
	KindCumulative = "cumulative"
	KindPercentage = "percentage"
)

const timeLayout = "2006-01-02 15:04:05"

// ErrIncompleteExport is returned when a written run does not read back whole.
var ErrIncompleteExport = errors.New("export is incomplete")

// Run is one reporting run with its four tables.
type Run struct {
	ID         string
	Created    time.Time
	Start      string
	End        string
	Project    string
	Users      *models.Matrix
	Projects   models.ProjectTable
	Cumulative models.ProjectTable
	Percentage models.ProjectTable
}

// RunSummary is a stored run without its tables.
type RunSummary struct {
	ID      string
	Created time.Time
	Start   string
	End     string
	Project string
}

// UsageCell is one stored month value.
type UsageCell struct {
	RowKey string
	Month  string
	Value  models.Value
}

// Export writes run into a new SQLite file at path.
func Export(path string, run *Run) error {
	db, err := New(path)
	if err != nil {
		return err
	}
	if err := db.SaveRun(context.Background(), run); err != nil {
		_ = db.Close()
		return err
	}
	if err := db.Vacuum(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to compact database: %w", err)
	}
	if err := db.Verify(context.Background(), run); err != nil {
		_ = db.Close()
		return err
	}
	return db.Close()
}

// Verify reads run back and checks every table holds one cell per row and
// month plus the sum column.
func (db *DB) Verify(ctx context.Context, run *Run) error {
	runs, err := db.ListRuns(ctx)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(runs, func(r RunSummary) bool { return r.ID == run.ID }) {
		return fmt.Errorf("%w: run %s not stored", ErrIncompleteExport, run.ID)
	}

	want := map[string]int{
		KindProjects:   projectCells(run.Projects),
		KindCumulative: projectCells(run.Cumulative),
		KindPercentage: projectCells(run.Percentage),
	}
	if run.Users != nil {
		want[KindUsers] = (len(run.Users.Rows) + 1) * (len(run.Users.Months) + 1)
	}
	for _, kind := range []string{KindUsers, KindProjects, KindCumulative, KindPercentage} {
		cells, err := db.Usage(ctx, run.ID, kind)
		if err != nil {
			return err
		}
		if len(cells) != want[kind] {
			return fmt.Errorf("%w: %s has %d cells, want %d", ErrIncompleteExport, kind, len(cells), want[kind])
		}
	}
	return nil
}

// projectCells counts the rows including the total row.
func projectCells(t models.ProjectTable) int {
	return (len(t.Rows) + 1) * (len(t.Months) + 1)
}

// SaveRun stores run and all of its tables in one transaction.
func (db *DB) SaveRun(ctx context.Context, run *Run) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("failed to roll back", "error", err)
		}
	}()

	created := run.Created
	if created.IsZero() {
		created = time.Now()
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, created, start_date, end_date, project) VALUES (?, ?, ?, ?, ?)`,
		run.ID, created.UTC().Format(timeLayout), run.Start, run.End, nullString(run.Project))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	infoStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO info (run_id, kind, row_key, position, project, name, description, sbu_requested, pi, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare info insert: %w", err)
	}
	defer func() { _ = infoStmt.Close() }()

	usageStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO usage (run_id, kind, row_key, month, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer func() { _ = usageStmt.Close() }()

	insertCells := func(kind, key string, months []models.Month, cells []models.Value, sum models.Value) error {
		for i, m := range months {
			if _, err := usageStmt.ExecContext(ctx, run.ID, kind, key, m.String(), nullFloat(cells[i])); err != nil {
				return fmt.Errorf("failed to insert usage %s/%s/%s: %w", kind, key, m, err)
			}
		}
		if _, err := usageStmt.ExecContext(ctx, run.ID, kind, key, models.SumKey, nullFloat(sum)); err != nil {
			return fmt.Errorf("failed to insert usage %s/%s/sum: %w", kind, key, err)
		}
		return nil
	}

	if run.Users != nil {
		rows := append(append([]models.UserRow(nil), run.Users.Rows...), run.Users.Total)
		for pos, row := range rows {
			_, err := infoStmt.ExecContext(ctx, run.ID, KindUsers, row.Key(), pos,
				row.Info.Project, nullString(row.Info.Name), nullString(row.Info.Description),
				row.Info.Requested, nullString(row.Info.PI), strconv.FormatBool(row.Info.Active))
			if err != nil {
				return fmt.Errorf("failed to insert info %s/%s: %w", KindUsers, row.Key(), err)
			}
			if err := insertCells(KindUsers, row.Key(), run.Users.Months, row.Cells, row.Sum); err != nil {
				return err
			}
		}
	}

	tables := []struct {
		kind  string
		table models.ProjectTable
	}{
		{KindProjects, run.Projects},
		{KindCumulative, run.Cumulative},
		{KindPercentage, run.Percentage},
	}
	for _, tt := range tables {
		rows := append(append([]models.ProjectRow(nil), tt.table.Rows...), tt.table.Total)
		for pos, row := range rows {
			_, err := infoStmt.ExecContext(ctx, run.ID, tt.kind, row.Key(), pos,
				row.Info.Project, nil, nullString(row.Info.Description),
				row.Info.Requested, nullString(row.Info.PI), nullString(strings.Join(row.ActiveNames, ", ")))
			if err != nil {
				return fmt.Errorf("failed to insert info %s/%s: %w", tt.kind, row.Key(), err)
			}
			if err := insertCells(tt.kind, row.Key(), tt.table.Months, row.Cells, row.Sum); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// ListRuns returns the stored runs, newest first.
func (db *DB) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, created, start_date, end_date, project FROM runs ORDER BY created DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var created string
		var project sql.NullString
		if err := rows.Scan(&r.ID, &created, &r.Start, &r.End, &project); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Created, _ = time.Parse(timeLayout, created)
		r.Project = project.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Usage returns the stored cells of one table kind, in row then month order.
func (db *DB) Usage(ctx context.Context, runID, kind string) ([]UsageCell, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT u.row_key, u.month, u.value
		FROM usage u
		JOIN info i ON i.run_id = u.run_id AND i.kind = u.kind AND i.row_key = u.row_key
		WHERE u.run_id = ? AND u.kind = ?
		ORDER BY i.position, u.month = 'sum', u.month`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var cells []UsageCell
	for rows.Next() {
		var c UsageCell
		var v sql.NullFloat64
		if err := rows.Scan(&c.RowKey, &c.Month, &v); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}
		if v.Valid {
			c.Value = models.Some(v.Float64)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullFloat stores a cell without data as NULL.
func nullFloat(v models.Value) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v.V, Valid: v.Valid}
}
