package version

import (
	"runtime/debug"
	"strings"
)

// ModulePath is the import path of the lima module.
const ModulePath = "github.com/kbukum/lima"

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
)

// Info represents version information.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	GoVersion string `json:"go_version"`
	IsDirty   bool   `json:"is_dirty"`
}

var readBuildInfo = debug.ReadBuildInfo

// Get returns the version information. A Version left at "dev" is replaced
// by the module version recorded in the build info, when lima is a
// dependency of the running binary.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	if info.Version == "dev" {
		if v := moduleVersion(bi); v != "" {
			info.Version = v
		}
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.modified":
			info.IsDirty = s.Value == "true"
		}
	}
	return info
}

func moduleVersion(bi *debug.BuildInfo) string {
	if bi.Main.Path == ModulePath && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path != ModulePath {
			continue
		}
		if dep.Replace != nil && dep.Replace.Version != "" {
			return dep.Replace.Version
		}
		return dep.Version
	}
	return ""
}

// Short returns the version with the commit appended when known.
func Short() string {
	info := Get()
	if info.GitCommit == "" || strings.HasPrefix(info.Version, "v") {
		return info.Version
	}
	if info.IsDirty {
		return info.Version + "-" + info.GitCommit + "-dirty"
	}
	return info.Version + "-" + info.GitCommit
}

// UserAgent returns the default User-Agent header value.
func UserAgent() string {
	return "lima/" + Short()
}
