// Package version holds build metadata, set at link time with
// -ldflags "-X github.com/banshee-data/triplclust/internal/version.Version=...".
package version

import "fmt"

var (
	// Version is the release version.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// String formats the build metadata for -version output.
func String() string {
	return fmt.Sprintf("triplclust %s (commit %s, built %s)", Version, GitSHA, BuildTime)
}
