// Package version reports the build of the lane-overlay tools.
package version

import "fmt"

// Set with -ldflags "-X lane-overlay/internal/version.Version=..."
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String returns a one line description of the build.
func String() string {
	return fmt.Sprintf("lane-overlay %s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
