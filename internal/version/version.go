// Package version holds build metadata injected through ldflags.
package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/smazurov/chrometester/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info contains version and build metadata.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// Get returns version and build information.
func Get() Info {
	return Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders the multi-line form printed by the version command.
func (i Info) String() string {
	return fmt.Sprintf("chrometester %s\n  commit:   %s\n  built:    %s\n  go:       %s\n  platform: %s",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// UserAgent is sent on every request to the driver's control endpoint.
func UserAgent() string {
	return fmt.Sprintf("chrometester/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}
