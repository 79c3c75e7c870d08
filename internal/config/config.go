// Package config contains everything related to configuration
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/j-veylop/sbu-reporter/internal/accounting"
	"github.com/j-veylop/sbu-reporter/internal/aggregate"
	"github.com/j-veylop/sbu-reporter/internal/matrix"
	"github.com/j-veylop/sbu-reporter/internal/report"
)

// Config holds the application configuration.
type Config struct {
	UsageCommand    string
	InfoCommand     string
	CommandTimeout  time.Duration
	Mode            matrix.Mode
	Concurrency     int
	ActiveThreshold float64
	Precision       int
	ValidateUsers   bool
	Columns         accounting.Columns

	OutputDir    string
	OutputPrefix string
	SQLite       bool
	Notify       bool

	// WatchDebounce is how long roster changes settle before a re-run.
	WatchDebounce time.Duration

	LogLevel slog.Level
	LogFile  string
}

// Default values
const (
	defaultConcurrency   = 1
	defaultWatchDebounce = 500 * time.Millisecond
)

// Load reads configuration from .env files and environment variables.
func Load() (*Config, error) {
	// Try loading .env from multiple locations
	for _, path := range getEnvPaths() {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			break
		}
	}

	defaults := accounting.DefaultColumns()
	cfg := &Config{
		UsageCommand:    getEnvString("SBU_ACCUSE_CMD", accounting.DefaultUsageCommand),
		InfoCommand:     getEnvString("SBU_ACCINFO_CMD", accounting.DefaultInfoCommand),
		CommandTimeout:  getEnvDuration("SBU_COMMAND_TIMEOUT", accounting.DefaultTimeout),
		Concurrency:     getEnvInt("SBU_CONCURRENCY", defaultConcurrency),
		ActiveThreshold: getEnvFloat("SBU_ACTIVE_THRESHOLD", matrix.DefaultActiveThreshold),
		Precision:       getEnvInt("SBU_PERCENT_PRECISION", aggregate.DefaultPrecision),
		ValidateUsers:   getEnvBool("SBU_VALIDATE_USERS", true),
		Columns: accounting.Columns{
			Month:      getEnvString("SBU_COLUMN_MONTH", defaults.Month),
			Account:    getEnvString("SBU_COLUMN_ACCOUNT", defaults.Account),
			User:       getEnvString("SBU_COLUMN_USER", defaults.User),
			Used:       getEnvString("SBU_COLUMN_USED", defaults.Used),
			Restituted: getEnvString("SBU_COLUMN_RESTITUTED", defaults.Restituted),
		},
		OutputDir:    getEnvString("SBU_OUTPUT_DIR", "."),
		OutputPrefix: getEnvString("SBU_OUTPUT_PREFIX", report.DefaultPrefix),
		SQLite:       getEnvBool("SBU_SQLITE", false),
		Notify:       getEnvBool("SBU_NOTIFY", false),
		LogFile:      getEnvString("SBU_LOG_FILE", ""),

		WatchDebounce: getEnvDuration("SBU_WATCH_DEBOUNCE", defaultWatchDebounce),
	}

	mode, err := matrix.ParseMode(strings.ToLower(getEnvString("SBU_COLLECT_MODE", string(matrix.ModeUser))))
	if err != nil {
		return nil, fmt.Errorf("SBU_COLLECT_MODE: %w", err)
	}
	cfg.Mode = mode

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvString("SBU_LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("SBU_LOG_LEVEL: %w", err)
	}

	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("SBU_CONCURRENCY must be at least 1, got %d", cfg.Concurrency)
	}

	return cfg, nil
}

// getEnvPaths returns a list of paths to check for .env files.
func getEnvPaths() []string {
	var paths []string

	// Current directory
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}

	// Home directory locations
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(home, ".config", "sbu", ".env"),
			filepath.Join(home, ".sbu", ".env"),
		)
	}

	return paths
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns the default.
// Accepts values like "30s", "1m", "500ms".
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		// Try parsing as seconds if no unit specified
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvBool accepts the forms understood by strconv.ParseBool, plus yes/no.
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch value {
	case "":
		return defaultValue
	case "yes", "on":
		return true
	case "no", "off":
		return false
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return defaultValue
}

// ensureDir creates a directory and all parent directories if they don't exist.
func ensureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o750)
}

// EnsureOutputDir creates the output directory.
func (c *Config) EnsureOutputDir() error {
	if err := ensureDir(c.OutputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}
