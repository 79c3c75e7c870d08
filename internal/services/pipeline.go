package services

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/google/uuid"

	"github.com/j-veylop/sbu-reporter/internal/accounting"
	"github.com/j-veylop/sbu-reporter/internal/aggregate"
	"github.com/j-veylop/sbu-reporter/internal/config"
	"github.com/j-veylop/sbu-reporter/internal/daterange"
	"github.com/j-veylop/sbu-reporter/internal/db"
	"github.com/j-veylop/sbu-reporter/internal/logger"
	"github.com/j-veylop/sbu-reporter/internal/matrix"
	"github.com/j-veylop/sbu-reporter/internal/models"
	"github.com/j-veylop/sbu-reporter/internal/report"
	"github.com/j-veylop/sbu-reporter/internal/roster"
)

// notify is replaced in tests.
var notify = func(title, body string) error {
	return beeep.Notify(title, body, "")
}

// Request describes one reporting run.
type Request struct {
	RosterPath string
	// Project overrides the roster's default project.
	Project string
	// Start and End are date bounds: nil, a year as int, or a date string.
	Start any
	End   any
}

// Result is the outcome of a run.
type Result struct {
	ID       string
	Created  time.Time
	Project  string
	Interval daterange.Interval
	Roster   *models.Roster
	Tables   report.Tables
}

// Pipeline collects usage and derives the report tables.
type Pipeline struct {
	cfg       *config.Config
	collector *accounting.Collector
	now       func() time.Time
}

// NewPipeline creates a pipeline. A nil runner executes the configured commands.
func NewPipeline(cfg *config.Config, runner accounting.Runner) *Pipeline {
	if runner == nil {
		runner = accounting.NewExecRunner(cfg.CommandTimeout)
	}

	collector := accounting.NewCollector(runner)
	collector.Columns = cfg.Columns
	if cfg.UsageCommand != "" {
		collector.UsageCommand = cfg.UsageCommand
	}
	if cfg.InfoCommand != "" {
		collector.InfoCommand = cfg.InfoCommand
	}

	return &Pipeline{
		cfg:       cfg,
		collector: collector,
		now:       time.Now,
	}
}

// Run loads the roster, collects usage and builds every table.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if req.RosterPath == "" {
		return nil, fmt.Errorf("no roster file given")
	}

	r, err := roster.Load(req.RosterPath)
	if err != nil {
		return nil, err
	}

	project := req.Project
	if project == "" {
		project = r.DefaultProject
	}

	iv, err := daterange.Resolver{Now: p.now}.Resolve(req.Start, req.End)
	if err != nil {
		return nil, err
	}

	res := &Result{
		ID:       uuid.NewString(),
		Created:  p.now(),
		Project:  project,
		Interval: iv,
		Roster:   r,
	}
	log := logger.With("run_id", res.ID)
	log.Info("Starting run", "roster", req.RosterPath, "project", project, "interval", iv.String(), "mode", p.cfg.Mode)

	if p.cfg.ValidateUsers {
		if err := p.checkLinkedUsers(ctx, r); err != nil {
			return nil, err
		}
	}

	m, err := matrix.Build(ctx, r, iv, p.collector, matrix.Options{
		Mode:            p.cfg.Mode,
		Project:         project,
		Concurrency:     p.cfg.Concurrency,
		ActiveThreshold: p.cfg.ActiveThreshold,
	})
	if err != nil {
		return nil, err
	}

	projects := aggregate.Rollup(m)
	cumulative := aggregate.Cumulative(projects)
	res.Tables = report.Tables{
		Users:      m,
		Projects:   projects,
		Cumulative: cumulative,
		Percentage: aggregate.Percentage(cumulative, aggregate.PercentOptions{Precision: p.cfg.Precision}),
	}

	log.Info("Run complete", "users", len(m.Rows), "projects", len(projects.Rows), "months", len(m.Months))
	return res, nil
}

// checkLinkedUsers compares the roster with the users accinfo reports.
func (p *Pipeline) checkLinkedUsers(ctx context.Context, r *models.Roster) error {
	linked, err := p.collector.LinkedUsers(ctx)
	if err != nil {
		return err
	}
	known := r.Usernames()

	mismatch := &accounting.UserMismatchError{Scope: p.collector.InfoCommand}
	for _, u := range linked {
		if !slices.Contains(known, u) {
			mismatch.Unexpected = append(mismatch.Unexpected, u)
		}
	}
	for _, u := range known {
		if !slices.Contains(linked, u) {
			mismatch.Missing = append(mismatch.Missing, u)
		}
	}
	if len(mismatch.Unexpected) == 0 && len(mismatch.Missing) == 0 {
		return nil
	}
	slices.Sort(mismatch.Unexpected)
	slices.Sort(mismatch.Missing)
	return mismatch
}

// Export writes the report files of res into the output directory.
// Either every file is written or none is.
func (p *Pipeline) Export(res *Result) ([]string, error) {
	prefix := p.cfg.OutputPrefix
	artifacts := []report.Artifact{
		report.StreamArtifact(report.Filename(prefix, "csv", res.Created), func(w io.Writer) error {
			return report.WriteCSV(w, res.Tables)
		}),
		report.StreamArtifact(report.Filename(prefix, "svg", res.Created), func(w io.Writer) error {
			return report.RenderSVG(w, res.Tables.Cumulative, res.Tables.Percentage, res.Created)
		}),
	}
	if p.cfg.SQLite {
		artifacts = append(artifacts, report.Artifact{
			Name: report.Filename(prefix, "db", res.Created),
			Render: func(path string) error {
				return db.Export(path, res.dbRun())
			},
		})
	}

	paths, err := report.Commit(p.cfg.OutputDir, artifacts)
	if err != nil {
		return nil, err
	}
	logger.Info("Exported report", "run_id", res.ID, "files", len(paths))

	if p.cfg.Notify {
		body := fmt.Sprintf("%d files written to %s", len(paths), p.cfg.OutputDir)
		if err := notify("SBU report ready", body); err != nil {
			logger.Warn("Failed to send notification", "error", err)
		}
	}
	return paths, nil
}

func (res *Result) dbRun() *db.Run {
	return &db.Run{
		ID:         res.ID,
		Created:    res.Created,
		Start:      res.Interval.StartString(),
		End:        res.Interval.EndString(),
		Project:    res.Project,
		Users:      res.Tables.Users,
		Projects:   res.Tables.Projects.ProjectTable,
		Cumulative: res.Tables.Cumulative.ProjectTable,
		Percentage: res.Tables.Percentage.ProjectTable,
	}
}
