// Package version holds build metadata injected with -ldflags, e.g.
// -X github.com/MeKo-Tech/facescan/internal/version.Version=v1.0.0.
package version

// Build-time variables set by ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns version information
func Info() (string, string, string) {
	return Version, GitCommit, BuildDate
}
