// Package version reports the build version of the CLI.
package version

import (
	"fmt"
	"runtime"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the version of the CLI
	Version = "0.1.0"
	// BuildDate is the build date
	BuildDate = "unknown"
	// GitCommit is the git commit hash
	GitCommit = "unknown"
)

// Info holds version information
type Info struct {
	Version   string
	BuildDate string
	GitCommit string
	GoVersion string
	Platform  string
}

// Get returns version information
func Get() Info {
	return Info{
		Version:   Version,
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String returns a formatted version string
func (i Info) String() string {
	return fmt.Sprintf("insights version %s (%s %s)", i.Version, i.Platform, i.GoVersion)
}

// Markdown renders the version details as a markdown list.
func (i Info) Markdown() string {
	return fmt.Sprintf("# insights %s\n\n- **Commit:** %s\n- **Built:** %s\n- **Go:** %s\n- **Platform:** %s\n",
		i.Version, i.GitCommit, i.BuildDate, i.GoVersion, i.Platform)
}

// AtLeast reports whether the CLI version is at least min. Development
// builds with an unparseable version always qualify.
func AtLeast(min string) (bool, error) {
	want, err := goversion.NewVersion(min)
	if err != nil {
		return false, fmt.Errorf("invalid version %q: %w", min, err)
	}
	have, err := goversion.NewVersion(Version)
	if err != nil {
		return true, nil
	}
	return have.GreaterThanOrEqual(want), nil
}
