package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func stubBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	origRead, origVersion, origCommit := readBuildInfo, Version, GitCommit
	t.Cleanup(func() {
		readBuildInfo, Version, GitCommit = origRead, origVersion, origCommit
	})
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
}

func TestGet_FromDependency(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Main:      debug.Module{Path: "example.com/petstore", Version: "(devel)"},
		Deps:      []*debug.Module{{Path: ModulePath, Version: "v1.2.3"}},
	})
	Version, GitCommit = "dev", ""

	info := Get()
	if info.Version != "v1.2.3" {
		t.Errorf("Version = %q, want v1.2.3", info.Version)
	}
	if info.GoVersion != "go1.26.0" {
		t.Errorf("GoVersion = %q", info.GoVersion)
	}
	if got := UserAgent(); got != "lima/v1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
}

func TestGet_ReplacedDependency(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Deps: []*debug.Module{{Path: ModulePath, Version: "v1.0.0", Replace: &debug.Module{Path: "../lima", Version: "v1.0.1"}}},
	})
	Version = "dev"
	if got := Get().Version; got != "v1.0.1" {
		t.Errorf("Version = %q, want v1.0.1", got)
	}
}

func TestGet_LdflagsWin(t *testing.T) {
	stubBuildInfo(t, &debug.BuildInfo{
		Deps:     []*debug.Module{{Path: ModulePath, Version: "v1.2.3"}},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abcdef1234567"}, {Key: "vcs.modified", Value: "true"}},
	})
	Version, GitCommit = "2.0.0", ""

	info := Get()
	if info.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", info.Version)
	}
	if info.GitCommit != "abcdef1" || !info.IsDirty {
		t.Errorf("GitCommit = %q, IsDirty = %v", info.GitCommit, info.IsDirty)
	}
	if got := Short(); got != "2.0.0-abcdef1-dirty" {
		t.Errorf("Short() = %q", got)
	}
}

func TestGet_NoBuildInfo(t *testing.T) {
	stubBuildInfo(t, nil)
	Version, GitCommit = "dev", ""
	if got := UserAgent(); !strings.HasPrefix(got, "lima/dev") {
		t.Errorf("UserAgent() = %q", got)
	}
}
