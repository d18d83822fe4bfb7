// Package buildinfo provides build-time version information.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/recall-go/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo

import (
	"runtime"
	"strings"
)

// Build-time variables (set via ldflags).
var (
	// Version is the semantic version.
	Version = "dev"

	// Commit is the git commit hash.
	Commit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"

	// ReleaseBackendURL is the backend origin compiled into release builds.
	ReleaseBackendURL = "https://api.recall-review.app"
)

// DevBackendURL is the backend origin for development builds.
const DevBackendURL = "http://localhost:8000"

// Info contains build information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	BuildTime string `json:"build_time" yaml:"build_time"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Backend   string `json:"default_backend" yaml:"default_backend"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Backend:   DefaultBackendURL(),
	}
}

// IsDev reports whether this is an unversioned development build.
func IsDev() bool {
	return Version == "dev" || strings.HasSuffix(Version, "-dev")
}

// DefaultBackendURL returns the compiled default backend origin.
func DefaultBackendURL() string {
	if IsDev() {
		return DevBackendURL
	}
	return ReleaseBackendURL
}

// UserAgent returns the User-Agent sent with every backend request.
func UserAgent() string {
	return "recall-cli/" + Version
}

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}
