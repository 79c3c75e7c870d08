package db

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/models"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Expected path %s, got %s", dbPath, db.Path())
	}

	// Verify file exists
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "subdir", "nested", "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database with nested path: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Nested directories were not created")
	}
}

func TestSchema_TablesExist(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	for _, table := range []string{"runs", "info", "usage"} {
		var name string
		err := db.QueryRowContext(context.Background(), "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s does not exist: %v", table, err)
		}
	}
}

func TestVacuum(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	if err := db.Vacuum(); err != nil {
		t.Errorf("Vacuum failed: %v", err)
	}
}

func TestClose(t *testing.T) {
	db := newTestDB(t)

	if err := db.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	// Verify database is closed by trying to query
	_, err := db.QueryContext(context.Background(), "SELECT 1")
	if err == nil {
		t.Error("Expected error querying closed database")
	}
}

func TestExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")
	run := sampleRun()

	if err := Export(path, run); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer db.Close()

	runs, err := db.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
	}
	if runs[0].ID != run.ID || runs[0].Start != "01-01-2019" || runs[0].Project != "A" {
		t.Errorf("ListRuns()[0] = %+v", runs[0])
	}
	if !runs[0].Created.Equal(run.Created) {
		t.Errorf("Created = %v, want %v", runs[0].Created, run.Created)
	}

	cells, err := db.Usage(context.Background(), run.ID, KindUsers)
	if err != nil {
		t.Fatalf("Usage() error = %v", err)
	}
	// Two rows (u1 and sum), two months plus the sum column.
	if len(cells) != 6 {
		t.Fatalf("Usage() returned %d cells, want 6", len(cells))
	}
	if cells[0].RowKey != "u1" || cells[0].Month != "2019-01" || cells[0].Value != models.Some(10) {
		t.Errorf("cells[0] = %+v", cells[0])
	}
	if cells[1].Value.Valid {
		t.Errorf("cells[1] should be NULL, got %+v", cells[1])
	}
	if cells[2].Month != models.SumKey || cells[2].Value != models.Some(10) {
		t.Errorf("cells[2] = %+v", cells[2])
	}
	if cells[3].RowKey != models.SumKey {
		t.Errorf("cells[3].RowKey = %q, want sum", cells[3].RowKey)
	}

	pct, err := db.Usage(context.Background(), run.ID, KindPercentage)
	if err != nil {
		t.Fatalf("Usage(percentage) error = %v", err)
	}
	if len(pct) != 6 || pct[0].Value != models.Some(1) {
		t.Errorf("Usage(percentage) = %+v", pct)
	}

	var active string
	err = db.QueryRowContext(context.Background(),
		"SELECT active FROM info WHERE run_id = ? AND kind = ? AND row_key = ?", run.ID, KindProjects, "A").Scan(&active)
	if err != nil {
		t.Fatalf("query active: %v", err)
	}
	if active != "Donald Duck" {
		t.Errorf("active = %q, want %q", active, "Donald Duck")
	}
}

func TestVerify(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()
	ctx := context.Background()

	run := sampleRun()
	if err := db.Verify(ctx, run); !errors.Is(err, ErrIncompleteExport) {
		t.Errorf("Verify() before SaveRun error = %v, want ErrIncompleteExport", err)
	}

	if err := db.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := db.Verify(ctx, run); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM usage WHERE kind = ? AND month = ?", KindCumulative, "2019-02"); err != nil {
		t.Fatalf("delete cells: %v", err)
	}
	if err := db.Verify(ctx, run); !errors.Is(err, ErrIncompleteExport) {
		t.Errorf("Verify() with missing cells error = %v, want ErrIncompleteExport", err)
	}
}

func TestSaveRun_DuplicateID(t *testing.T) {
	db := newTestDB(t)
	defer db.Close()

	run := sampleRun()
	if err := db.SaveRun(context.Background(), run); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := db.SaveRun(context.Background(), run); err == nil {
		t.Error("SaveRun() with a duplicate id should fail")
	}

	var count int
	if err := db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM usage").Scan(&count); err != nil {
		t.Fatalf("count usage: %v", err)
	}
	if count != 4*6 {
		t.Errorf("usage rows = %d, want %d (failed run rolled back)", count, 4*6)
	}
}

func sampleRun() *Run {
	months := []models.Month{{Year: 2019, Month: time.January}, {Year: 2019, Month: time.February}}
	table := func(v float64) models.ProjectTable {
		return models.ProjectTable{
			Months: months,
			Rows: []models.ProjectRow{{
				Info:        models.ProjectInfo{Project: "A", PI: "Walt Disney", Requested: 1000},
				ActiveUsers: []string{"u1"},
				ActiveNames: []string{"Donald Duck"},
				Cells:       []models.Value{models.Some(v), models.None()},
				Sum:         models.Some(v),
			}},
			Total: models.ProjectRow{
				Info:  models.ProjectInfo{Project: models.SumKey, Requested: 1000},
				Cells: []models.Value{models.Some(v), models.None()},
				Sum:   models.Some(v),
			},
		}
	}

	return &Run{
		ID:      "6f1c1f36-6b3e-4d8c-9d47-9b1a0f1e2a11",
		Created: time.Date(2019, time.May, 31, 12, 0, 0, 0, time.UTC),
		Start:   "01-01-2019",
		End:     "31-05-2019",
		Project: "A",
		Users: &models.Matrix{
			Months: months,
			Rows: []models.UserRow{{
				Info:  models.Entry{Username: "u1", Name: "Donald Duck", Project: "A", PI: "Walt Disney", Requested: 1000, Active: true},
				Cells: []models.Value{models.Some(10), models.None()},
				Sum:   models.Some(10),
			}},
			Total: models.UserRow{
				Info:  models.Entry{Username: models.SumKey, Project: models.SumKey, Requested: 1000},
				Cells: []models.Value{models.Some(10), models.None()},
				Sum:   models.Some(10),
			},
		},
		Projects:   table(10),
		Cumulative: table(10),
		Percentage: table(1),
	}
}

// Helper to create a test database
func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")
	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	return db
}
