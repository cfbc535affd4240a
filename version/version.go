// Package version reports build information stamped in at link time.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Build information. These variables are set at build time via ldflags:
//
//	-X github.com/teranos/rowdb/version.Version=v0.3.0
var (
	// CommitHash is the git commit hash when the binary was built
	CommitHash = "dev"

	// BuildTime is when the binary was built
	BuildTime = "unknown"

	// Version is the semantic version (if tagged)
	Version = "dev"
)

// Info contains version and build information
type Info struct {
	CommitHash   string `json:"commit_hash" yaml:"commit_hash"`
	BuildTime    string `json:"build_time" yaml:"build_time"`
	Version      string `json:"version" yaml:"version"`
	GoVersion    string `json:"go_version" yaml:"go_version"`
	Platform     string `json:"platform" yaml:"platform"`
	SQLiteDriver string `json:"sqlite_driver" yaml:"sqlite_driver"`
}

// Get returns the current version information
func Get() Info {
	return Info{
		CommitHash:   CommitHash,
		BuildTime:    BuildTime,
		Version:      Version,
		GoVersion:    runtime.Version(),
		Platform:     fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		SQLiteDriver: driverVersion(),
	}
}

// driverVersion reads the go-sqlite3 module version from the build info.
func driverVersion() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, dep := range bi.Deps {
		if dep.Path == "github.com/mattn/go-sqlite3" {
			return dep.Version
		}
	}
	return "unknown"
}

// String returns a human-readable version string
func (i Info) String() string {
	if i.Version != "dev" {
		return fmt.Sprintf("rowdb %s (commit %s, built %s)", i.Version, i.CommitHash, i.BuildTime)
	}
	return fmt.Sprintf("rowdb dev (commit %s, built %s)", i.CommitHash, i.BuildTime)
}

// Short returns a short version string with just the commit hash
func (i Info) Short() string {
	if len(i.CommitHash) >= 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
