package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/sbu-reporter/internal/matrix"
)

func TestGetEnvString(t *testing.T) {
	key := "TEST_ENV_STRING"
	val := "test_value"
	t.Setenv(key, val)

	if got := getEnvString(key, "default"); got != val {
		t.Errorf("getEnvString() = %q, want %q", got, val)
	}

	if got := getEnvString("NON_EXISTENT", "default"); got != "default" {
		t.Errorf("getEnvString() = %q, want %q", got, "default")
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_ENV_DURATION"

	tests := []struct {
		name       string
		envVal     string
		defaultVal time.Duration
		want       time.Duration
	}{
		{"ValidDuration", "1m", time.Second, time.Minute},
		{"ValidSeconds", "60", time.Second, 60 * time.Second},
		{"Invalid", "invalid", time.Second, time.Second},
		{"Empty", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(key, tt.envVal)

			if got := getEnvDuration(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvNumbers(t *testing.T) {
	t.Setenv("TEST_ENV_INT", "4")
	t.Setenv("TEST_ENV_BAD_INT", "four")
	t.Setenv("TEST_ENV_FLOAT", "2.5")

	if got := getEnvInt("TEST_ENV_INT", 1); got != 4 {
		t.Errorf("getEnvInt() = %d, want 4", got)
	}
	if got := getEnvInt("TEST_ENV_BAD_INT", 1); got != 1 {
		t.Errorf("getEnvInt() = %d, want default 1", got)
	}
	if got := getEnvFloat("TEST_ENV_FLOAT", 1); got != 2.5 {
		t.Errorf("getEnvFloat() = %v, want 2.5", got)
	}
	if got := getEnvFloat("NON_EXISTENT", 1.5); got != 1.5 {
		t.Errorf("getEnvFloat() = %v, want default 1.5", got)
	}
}

func TestGetEnvBool(t *testing.T) {
	key := "TEST_ENV_BOOL"

	tests := []struct {
		envVal     string
		defaultVal bool
		want       bool
	}{
		{"true", false, true},
		{"1", false, true},
		{"yes", false, true},
		{"off", true, false},
		{"FALSE", true, false},
		{"maybe", true, true},
		{"", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.envVal, func(t *testing.T) {
			t.Setenv(key, tt.envVal)
			if got := getEnvBool(key, tt.defaultVal); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envVal, got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "dir")

	if err := ensureDir(path); err != nil {
		t.Fatalf("ensureDir() failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("directory was not created")
	}

	if err := ensureDir(""); err != nil {
		t.Error("ensureDir(\"\") should not error")
	}
}

func TestGetEnvPaths(t *testing.T) {
	paths := getEnvPaths()
	if len(paths) == 0 {
		t.Error("getEnvPaths() returned empty list")
	}

	// Basic check that it contains current directory
	cwd, _ := os.Getwd()
	found := false
	for _, p := range paths {
		if p == filepath.Join(cwd, ".env") {
			found = true
			break
		}
	}
	if !found {
		t.Error("getEnvPaths() missing current directory .env")
	}
}

// cleanEnv points the .env search at empty directories.
func cleanEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.UsageCommand != "accuse" || cfg.InfoCommand != "accinfo" {
		t.Errorf("commands = %q, %q", cfg.UsageCommand, cfg.InfoCommand)
	}
	if cfg.Mode != matrix.ModeUser {
		t.Errorf("Mode = %q, want %q", cfg.Mode, matrix.ModeUser)
	}
	if cfg.Columns.Used != "SBU's" {
		t.Errorf("Columns.Used = %q, want %q", cfg.Columns.Used, "SBU's")
	}
	if cfg.OutputPrefix != "Cluster_usage" {
		t.Errorf("OutputPrefix = %q", cfg.OutputPrefix)
	}
	if cfg.Precision != 2 || cfg.ActiveThreshold != 1.0 || cfg.Concurrency != 1 {
		t.Errorf("numeric defaults = %d, %v, %d", cfg.Precision, cfg.ActiveThreshold, cfg.Concurrency)
	}
	if !cfg.ValidateUsers {
		t.Error("ValidateUsers should default to true")
	}
}

func TestLoad_ValidateUsersOptOut(t *testing.T) {
	cleanEnv(t)
	t.Setenv("SBU_VALIDATE_USERS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.ValidateUsers {
		t.Error("SBU_VALIDATE_USERS=false should disable the accinfo check")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SBU_ACCUSE_CMD", "/opt/bin/accuse")
	t.Setenv("SBU_COMMAND_TIMEOUT", "5s")
	t.Setenv("SBU_COLLECT_MODE", "Project")
	t.Setenv("SBU_CONCURRENCY", "4")
	t.Setenv("SBU_PERCENT_PRECISION", "-1")
	t.Setenv("SBU_COLUMN_USED", "Used")
	t.Setenv("SBU_SQLITE", "yes")
	t.Setenv("SBU_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.UsageCommand != "/opt/bin/accuse" {
		t.Errorf("UsageCommand = %q", cfg.UsageCommand)
	}
	if cfg.CommandTimeout != 5*time.Second {
		t.Errorf("CommandTimeout = %v", cfg.CommandTimeout)
	}
	if cfg.Mode != matrix.ModeProject {
		t.Errorf("Mode = %q", cfg.Mode)
	}
	if cfg.Concurrency != 4 || cfg.Precision != -1 {
		t.Errorf("Concurrency = %d, Precision = %d", cfg.Concurrency, cfg.Precision)
	}
	if cfg.Columns.Used != "Used" || cfg.Columns.Month != "Month" {
		t.Errorf("Columns = %+v", cfg.Columns)
	}
	if !cfg.SQLite {
		t.Error("SQLite should be enabled")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SBU_COLLECT_MODE", "cluster"},
		{"SBU_LOG_LEVEL", "loud"},
		{"SBU_CONCURRENCY", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%s should fail", tt.key, tt.value)
			}
		})
	}
}

func TestEnsureOutputDir(t *testing.T) {
	cfg := &Config{OutputDir: filepath.Join(t.TempDir(), "reports")}
	if err := cfg.EnsureOutputDir(); err != nil {
		t.Fatalf("EnsureOutputDir() failed: %v", err)
	}
	if _, err := os.Stat(cfg.OutputDir); err != nil {
		t.Errorf("output directory missing: %v", err)
	}
}
