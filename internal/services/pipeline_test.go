package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/sbu-reporter/internal/accounting"
	"github.com/j-veylop/sbu-reporter/internal/config"
	"github.com/j-veylop/sbu-reporter/internal/db"
	"github.com/j-veylop/sbu-reporter/internal/matrix"
	"github.com/j-veylop/sbu-reporter/internal/models"
	"github.com/j-veylop/sbu-reporter/internal/roster"
)

const testRoster = `
A:
    description: Example project
    PI: Walt Disney
    SBU requested: 500
    users:
        u1: Donald Duck
        u2: Daisy Duck
`

const hundredHours = `Month     Account   SBU's       Restituted
-------   -------   ---------   ----------
2019-01   A         100:00:00   0:00:00
2019-02   A         100:00:00   0:00:00
2019-03   A         100:00:00   0:00:00
`

type fakeRunner struct {
	mu      sync.Mutex
	outputs map[string]string
	err     error
	calls   int
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key := name
	if len(args) >= 2 {
		key += " " + args[0] + " " + args[1]
	}
	return []byte(f.outputs[key]), nil
}

func newRunner() *fakeRunner {
	return &fakeRunner{outputs: map[string]string{
		"accuse -u u1": hundredHours,
		"accuse -u u2": hundredHours,
	}}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Mode:            matrix.ModeUser,
		Concurrency:     2,
		ActiveThreshold: matrix.DefaultActiveThreshold,
		Precision:       2,
		Columns:         accounting.DefaultColumns(),
		OutputDir:       t.TempDir(),
		OutputPrefix:    "Cluster_usage",
		WatchDebounce:   10 * time.Millisecond,
	}
}

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func fixedPipeline(cfg *config.Config, runner accounting.Runner) *Pipeline {
	p := NewPipeline(cfg, runner)
	p.now = func() time.Time { return time.Date(2019, time.May, 14, 9, 0, 0, 0, time.UTC) }
	return p
}

func TestPipeline_Run(t *testing.T) {
	p := fixedPipeline(testConfig(t), newRunner())

	res, err := p.Run(context.Background(), Request{
		RosterPath: writeRoster(t, testRoster),
		Start:      "01-01-2019",
		End:        "31-03-2019",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "01-01-2019", res.Interval.StartString())
	assert.Equal(t, "31-03-2019", res.Interval.EndString())

	users := res.Tables.Users
	require.Len(t, users.Rows, 2)
	require.Len(t, users.Months, 3)
	for _, row := range users.Rows {
		assert.Equal(t, models.Some(300), row.Sum, row.Info.Username)
		assert.True(t, row.Info.Active)
	}
	assert.Equal(t, models.Some(600), users.Total.Sum)

	projects := res.Tables.Projects
	require.Len(t, projects.Rows, 1)
	assert.Equal(t, []models.Value{models.Some(200), models.Some(200), models.Some(200)}, projects.Rows[0].Cells)
	assert.Equal(t, []string{"Donald Duck", "Daisy Duck"}, projects.Rows[0].ActiveNames)

	cum := res.Tables.Cumulative.Rows[0]
	assert.Equal(t, []models.Value{models.Some(200), models.Some(400), models.Some(600)}, cum.Cells)
	assert.Equal(t, models.Some(600), cum.Sum)

	pct := res.Tables.Percentage.Rows[0]
	assert.Equal(t, []models.Value{models.Some(40), models.Some(80), models.Some(120)}, pct.Cells)
	assert.Equal(t, models.Some(120), res.Tables.Percentage.Total.Sum)
}

func TestPipeline_Run_Errors(t *testing.T) {
	t.Run("NoRoster", func(t *testing.T) {
		_, err := fixedPipeline(testConfig(t), newRunner()).Run(context.Background(), Request{})
		assert.Error(t, err)
	})

	t.Run("MalformedRoster", func(t *testing.T) {
		_, err := fixedPipeline(testConfig(t), newRunner()).Run(context.Background(), Request{
			RosterPath: writeRoster(t, "just a string"),
		})
		assert.ErrorIs(t, err, roster.ErrMalformedRoster)
	})

	t.Run("BadInterval", func(t *testing.T) {
		runner := newRunner()
		_, err := fixedPipeline(testConfig(t), runner).Run(context.Background(), Request{
			RosterPath: writeRoster(t, testRoster),
			Start:      "31-02-2019",
		})
		assert.Error(t, err)
		assert.Zero(t, runner.calls, "no command should run for an invalid interval")
	})

	t.Run("CommandFailure", func(t *testing.T) {
		runner := &fakeRunner{err: &accounting.SubprocessError{Command: []string{"accuse"}, ExitCode: 2}}
		_, err := fixedPipeline(testConfig(t), runner).Run(context.Background(), Request{
			RosterPath: writeRoster(t, testRoster),
		})
		assert.ErrorIs(t, err, accounting.ErrSubprocess)
	})
}

func TestPipeline_Run_LinkedUserMismatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.ValidateUsers = true

	runner := newRunner()
	runner.outputs["accinfo"] = `Account information
User       Group
---------- ----------
u1         A
u9         A
`
	_, err := fixedPipeline(cfg, runner).Run(context.Background(), Request{
		RosterPath: writeRoster(t, testRoster),
	})
	require.ErrorIs(t, err, accounting.ErrUserMismatch)

	var mismatch *accounting.UserMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{"u9"}, mismatch.Unexpected)
	assert.Equal(t, []string{"u2"}, mismatch.Missing)
}

func TestPipeline_Run_DefaultConfigChecksLinkedUsers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.OutputDir = t.TempDir()

	runner := newRunner()
	runner.outputs["accinfo"] = `User       Group
---------- ----------
u1         A
u9         A
`
	_, err = fixedPipeline(cfg, runner).Run(context.Background(), Request{
		RosterPath: writeRoster(t, testRoster),
	})
	require.ErrorIs(t, err, accounting.ErrUserMismatch)
	assert.Equal(t, 1, runner.calls, "accinfo should fail the run before any accuse call")
}

func TestPipeline_Run_LinkedUsersMatch(t *testing.T) {
	cfg := testConfig(t)
	cfg.ValidateUsers = true

	runner := newRunner()
	runner.outputs["accinfo"] = `User       Group
---------- ----------
u2         A
u1         A
`
	_, err := fixedPipeline(cfg, runner).Run(context.Background(), Request{
		RosterPath: writeRoster(t, testRoster),
	})
	assert.NoError(t, err)
}

func TestPipeline_Export(t *testing.T) {
	cfg := testConfig(t)
	cfg.SQLite = true
	cfg.Notify = true

	var notified []string
	origNotify := notify
	notify = func(title, body string) error {
		notified = append(notified, title)
		return nil
	}
	defer func() { notify = origNotify }()

	p := fixedPipeline(cfg, newRunner())
	res, err := p.Run(context.Background(), Request{
		RosterPath: writeRoster(t, testRoster),
		Start:      "01-01-2019",
		End:        "31-03-2019",
	})
	require.NoError(t, err)

	paths, err := p.Export(res)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(cfg.OutputDir, "Cluster_usage_14_May_2019.csv"),
		filepath.Join(cfg.OutputDir, "Cluster_usage_14_May_2019.svg"),
		filepath.Join(cfg.OutputDir, "Cluster_usage_14_May_2019.db"),
	}, paths)
	assert.Len(t, notified, 1)

	csvData, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(csvData), ",info,info,info,info,info,info,Month"))
	assert.Contains(t, string(csvData), "u1,A,Donald Duck,Example project,500,Walt Disney,true")

	svgData, err := os.ReadFile(paths[1])
	require.NoError(t, err)
	assert.Contains(t, string(svgData), "<svg")

	store, err := db.New(paths[2])
	require.NoError(t, err)
	defer store.Close()
	runs, err := store.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.ID, runs[0].ID)

	leftovers, err := filepath.Glob(filepath.Join(cfg.OutputDir, ".*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
