// Package buildinfo provides build information for snapcoord.
//
// This package exposes build-time information injected via ldflags:
//
//   - Version: Semantic version (e.g., "1.0.0")
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//
// The packed Version doubles as the driver version reported to the host.
package buildinfo
