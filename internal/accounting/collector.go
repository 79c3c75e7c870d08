// Package accounting runs the cluster accounting commands and parses their output.
package accounting

import (
	"context"
	"fmt"

	"github.com/j-veylop/sbu-reporter/internal/daterange"
	"github.com/j-veylop/sbu-reporter/internal/logger"
	"github.com/j-veylop/sbu-reporter/internal/models"
)

// Default command names.
const (
	DefaultUsageCommand = "accuse"
	DefaultInfoCommand  = "accinfo"
)

// Collector queries usage records through a Runner.
type Collector struct {
	Runner       Runner
	Columns      Columns
	UsageCommand string
	InfoCommand  string
}

// NewCollector creates a collector with the default command and column names.
func NewCollector(runner Runner) *Collector {
	return &Collector{
		Runner:       runner,
		Columns:      DefaultColumns(),
		UsageCommand: DefaultUsageCommand,
		InfoCommand:  DefaultInfoCommand,
	}
}

// CollectUser returns user's monthly usage over iv.
// A non-empty project keeps only rows charged to that account.
func (c *Collector) CollectUser(ctx context.Context, user string, iv daterange.Interval, project string) ([]models.UsageRecord, error) {
	out, err := c.Runner.Run(ctx, c.UsageCommand, "-u", user, "-s", iv.StartString(), "-e", iv.EndString())
	if err != nil {
		return nil, fmt.Errorf("failed to collect usage of %s: %w", user, err)
	}

	records, err := ParseUsage(out, c.Columns, false)
	if err != nil {
		return nil, fmt.Errorf("usage of %s: %w", user, err)
	}
	for i := range records {
		records[i].User = user
	}

	records = filterAccount(records, project)
	logger.Debug("Collected user usage", "user", user, "records", len(records))
	return records, nil
}

// CollectProject returns the monthly usage of every user charged to project over iv.
func (c *Collector) CollectProject(ctx context.Context, project string, iv daterange.Interval) ([]models.UsageRecord, error) {
	out, err := c.Runner.Run(ctx, c.UsageCommand, "-a", project, "-s", iv.StartString(), "-e", iv.EndString())
	if err != nil {
		return nil, fmt.Errorf("failed to collect usage of project %s: %w", project, err)
	}

	records, err := ParseUsage(out, c.Columns, true)
	if err != nil {
		return nil, fmt.Errorf("usage of project %s: %w", project, err)
	}

	records = filterAccount(records, project)
	logger.Debug("Collected project usage", "project", project, "records", len(records))
	return records, nil
}

// LinkedUsers returns the usernames accinfo reports for the invoking account.
func (c *Collector) LinkedUsers(ctx context.Context) ([]string, error) {
	out, err := c.Runner.Run(ctx, c.InfoCommand)
	if err != nil {
		return nil, fmt.Errorf("failed to list linked users: %w", err)
	}
	return ParseLinkedUsers(out)
}

func filterAccount(records []models.UsageRecord, project string) []models.UsageRecord {
	if project == "" {
		return records
	}
	kept := records[:0]
	for _, r := range records {
		if r.Account == project {
			kept = append(kept, r)
		}
	}
	return kept
}
