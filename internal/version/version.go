// Package version reports which build of sbu is running.
package version

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

var (
	// Set with -ldflags "-X github.com/j-veylop/sbu-reporter/internal/version.Version=..."
	Version = ""
	Commit  = ""
	Date    = ""

	once sync.Once

	// runGit is replaced in tests.
	runGit = func(args ...string) (string, error) {
		ctx, cancel := context.WithTimeout(context.Background(), gitTimeout)
		defer cancel()
		out, err := exec.CommandContext(ctx, "git", args...).Output()
		return strings.TrimSpace(string(out)), err
	}

	// readBuildInfo is replaced in tests.
	readBuildInfo = debug.ReadBuildInfo
)

const gitTimeout = 2 * time.Second

// resolve fills whatever the linker left empty: the module version from a
// go install, then git, then "dev".
func resolve() {
	once.Do(func() {
		if Date == "" {
			Date = time.Now().Format("2006-01-02")
		}
		if Version == "" {
			Version = moduleVersion()
		}
		if Version == "" {
			Version = fromGit("dev", "describe", "--tags", "--abbrev=0")
		}
		if Commit == "" {
			Commit = fromGit("unknown", "describe", "--always", "--dirty")
		}
	})
}

func moduleVersion() string {
	info, ok := readBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return ""
	}
	return info.Main.Version
}

func fromGit(fallback string, args ...string) string {
	out, err := runGit(args...)
	if err != nil || out == "" {
		return fallback
	}
	return out
}

// Reset forgets resolved values so the next call resolves them again.
func Reset() {
	Version, Commit, Date = "", "", ""
	once = sync.Once{}
}

func GetVersion() string {
	resolve()
	return Version
}

func GetCommit() string {
	resolve()
	return Commit
}

func GetDate() string {
	resolve()
	return Date
}

// Info is the --version line.
func Info() string {
	resolve()
	return fmt.Sprintf("sbu %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}
