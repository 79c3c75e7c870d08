// Package main is the entry point for the sbu reporter.
// It collects SBU usage for a roster and writes or displays the report.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/j-veylop/sbu-reporter/internal/app"
	"github.com/j-veylop/sbu-reporter/internal/config"
	"github.com/j-veylop/sbu-reporter/internal/logger"
	"github.com/j-veylop/sbu-reporter/internal/report"
	"github.com/j-veylop/sbu-reporter/internal/services"
	"github.com/j-veylop/sbu-reporter/internal/version"
)

type options struct {
	roster   string
	project  string
	start    string
	end      string
	output   string
	view     bool
	watch    bool
	plot     bool
	noExport bool
}

func newApp(opts *options) *kingpin.Application {
	a := kingpin.New("sbu", "Collect and report SBU usage of cluster projects.")
	a.Version(version.Info())
	a.HelpFlag.Short('h')
	a.VersionFlag.Short('v')

	a.Arg("roster", "A .yaml file with project and account information.").
		Required().ExistingFileVar(&opts.roster)
	a.Flag("project", "The project of interest. Defaults to the roster's project.").
		Short('p').PlaceHolder("CODE").StringVar(&opts.project)
	a.Flag("start", "Start of the interval as YYYY, MM-YYYY or DD-MM-YYYY. Defaults to the start of the current year.").
		Short('s').PlaceHolder("DATE").StringVar(&opts.start)
	a.Flag("end", "End of the interval as YYYY, MM-YYYY or DD-MM-YYYY. Defaults to today.").
		Short('e').PlaceHolder("DATE").StringVar(&opts.end)
	a.Flag("output", "Directory for report files. Overrides SBU_OUTPUT_DIR.").
		Short('o').PlaceHolder("DIR").StringVar(&opts.output)
	a.Flag("view", "Browse the report in an interactive terminal viewer.").BoolVar(&opts.view)
	a.Flag("watch", "Re-run when the roster file changes. Implies --view.").BoolVar(&opts.watch)
	a.Flag("plot", "Print terminal charts and the project tables.").BoolVar(&opts.plot)
	a.Flag("no-export", "Do not write report files.").BoolVar(&opts.noExport)
	return a
}

func main() {
	var opts options
	kingpin.MustParse(newApp(&opts).Parse(os.Args[1:]))

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if opts.output != "" {
		cfg.OutputDir = opts.output
	}
	opts.view = opts.view || opts.watch

	closeLog, err := setupLogging(cfg, opts.view)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	req := services.Request{
		RosterPath: opts.roster,
		Project:    opts.project,
		Start:      dateArg(opts.start),
		End:        dateArg(opts.end),
	}

	if opts.view {
		return runViewer(cfg, req, opts)
	}
	return runOnce(cfg, req, opts)
}

// setupLogging sends logs to SBU_LOG_FILE when set. The viewer owns the
// terminal, so without a log file its logs are discarded.
func setupLogging(cfg *config.Config, view bool) (func() error, error) {
	if cfg.LogFile != "" {
		closeFn, err := logger.SetupFile(cfg.LogFile, cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return closeFn, nil
	}
	if view {
		logger.Setup(io.Discard, cfg.LogLevel)
	} else {
		logger.Setup(os.Stderr, cfg.LogLevel)
	}
	return func() error { return nil }, nil
}

// dateArg passes a bare year as an int, anything else as a date string.
func dateArg(s string) any {
	if s == "" {
		return nil
	}
	if year, err := strconv.Atoi(s); err == nil {
		return year
	}
	return s
}

func runOnce(cfg *config.Config, req services.Request, opts options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pipeline := services.NewPipeline(cfg, nil)
	res, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}

	if opts.plot {
		printPlot(os.Stdout, res)
	}

	if opts.noExport {
		return nil
	}
	paths, err := pipeline.Export(res)
	if err != nil {
		return fmt.Errorf("failed to export report: %w", err)
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}

func printPlot(w io.Writer, res *services.Result) {
	t := res.Tables
	_, _ = fmt.Fprintln(w, report.RenderASCII(report.PlotSeries(t.Cumulative.ProjectTable, false), 72, 12,
		"Accumulated SBU usage: "+res.Created.Format("02 Jan 2006")))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, report.RenderASCII(report.PlotSeries(t.Percentage.ProjectTable, true), 72, 12,
		"Accumulated % SBU usage"))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, report.RenderTable(t.Projects.ProjectTable))
}

func runViewer(cfg *config.Config, req services.Request, opts options) error {
	mgr := services.NewManager(cfg, nil, req)
	defer func() {
		if closeErr := mgr.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing services: %v\n", closeErr)
		}
	}()

	if opts.watch {
		if err := mgr.Watch(); err != nil {
			return fmt.Errorf("failed to watch roster: %w", err)
		}
	}

	model := app.NewModel(mgr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		if _, ok := <-sigChan; ok {
			p.Send(tea.Quit())
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if res := mgr.Latest(); res != nil && !opts.noExport && len(model.GetState().Exported()) == 0 {
		paths, err := mgr.Export()
		if err != nil {
			return fmt.Errorf("failed to export report: %w", err)
		}
		for _, path := range paths {
			fmt.Println(path)
		}
	}
	return nil
}
