// Package version holds build metadata injected at link time.
package version

// These variables are set via -ldflags at build time:
//
//	go build -ldflags "-X github.com/mizutama/kotoba/common/version.Version=v0.3.0"
var (
	// Version is the semantic version of the build.
	Version = "dev"

	// GitCommit is the short commit hash the binary was built from.
	GitCommit = "unknown"

	// BuildTime is the UTC build timestamp in RFC 3339 format.
	BuildTime = "unknown"
)
