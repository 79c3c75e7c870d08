package version

import (
	"errors"
	"runtime/debug"
	"strings"
	"testing"
)

// fakeGit answers "describe --tags" with tag and "describe --always" with commit.
// An empty answer fails the command.
func fakeGit(tag, commit string) func(args ...string) (string, error) {
	return func(args ...string) (string, error) {
		out := commit
		if len(args) > 1 && args[1] == "--tags" {
			out = tag
		}
		if out == "" {
			return "", errors.New("exit status 128")
		}
		return out, nil
	}
}

func stub(t *testing.T, git func(...string) (string, error), module string) {
	t.Helper()
	origGit, origInfo := runGit, readBuildInfo
	t.Cleanup(func() {
		runGit, readBuildInfo = origGit, origInfo
		Reset()
	})
	runGit = git
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: module}}, true
	}
	Reset()
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		tag         string
		commit      string
		module      string
		wantVersion string
		wantCommit  string
	}{
		{"GitTag", "v1.0.0", "abc1234-dirty", "(devel)", "v1.0.0", "abc1234-dirty"},
		{"ModuleVersionWins", "v1.0.0", "abc1234", "v1.1.0", "v1.1.0", "abc1234"},
		{"NoTag", "", "abc1234", "", "dev", "abc1234"},
		{"NoGit", "", "", "", "dev", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub(t, fakeGit(tt.tag, tt.commit), tt.module)

			if got := GetVersion(); got != tt.wantVersion {
				t.Errorf("GetVersion() = %q, want %q", got, tt.wantVersion)
			}
			if got := GetCommit(); got != tt.wantCommit {
				t.Errorf("GetCommit() = %q, want %q", got, tt.wantCommit)
			}
			if GetDate() == "" {
				t.Error("GetDate() returned empty string")
			}
		})
	}
}

func TestResolve_Once(t *testing.T) {
	calls := 0
	stub(t, func(...string) (string, error) {
		calls++
		return "v2.0.0", nil
	}, "")

	GetVersion()
	GetCommit()
	Info()
	if calls != 2 {
		t.Errorf("git ran %d times, want 2", calls)
	}
}

func TestInfo_LinkerValues(t *testing.T) {
	stub(t, fakeGit("", ""), "")
	Version, Commit, Date = "1.2.0", "abc1234", "2019-05-31"

	info := Info()
	if !strings.HasPrefix(info, "sbu 1.2.0 (commit: abc1234, built: 2019-05-31, ") {
		t.Errorf("Info() = %q", info)
	}
}
