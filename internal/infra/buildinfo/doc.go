// Package buildinfo provides build information for recall.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0"); "dev" for local builds
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - ReleaseBackendURL: backend origin used by release builds
//
// Development builds talk to http://localhost:8000 unless configured
// otherwise.
package buildinfo
