// Package buildinfo provides build-time version information.
//
// Values are injected at build time via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/snapcoord/internal/infra/buildinfo.Version=v1.0.0"
package buildinfo

import (
	"runtime"
	"strconv"
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
)

// Info contains build information.
type Info struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	BuildTime     string `json:"build_time"`
	GoVersion     string `json:"go_version"`
	DriverVersion uint64 `json:"driver_version"`
}

// Get returns the build information.
func Get() Info {
	return Info{
		Version:       Version,
		Commit:        Commit,
		BuildTime:     BuildTime,
		GoVersion:     runtime.Version(),
		DriverVersion: DriverVersion(),
	}
}

// String returns a formatted version string.
func String() string {
	return Version + " (" + Commit + ") built at " + BuildTime
}

// DriverVersion packs Version as major<<16 | minor<<8 | patch, the value
// announced to the host at start-up. Development builds report 0.
func DriverVersion() uint64 {
	v, ok := PackVersion(Version)
	if !ok {
		return 0
	}
	return v
}

// PackVersion packs a "vMAJOR.MINOR.PATCH" string. Pre-release and build
// suffixes are ignored; each component must fit in a byte, except major
// which may use the remaining bits.
func PackVersion(s string) (uint64, bool) {
	s = strings.TrimPrefix(s, "v")
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return 0, false
	}

	var nums [3]uint64
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return 0, false
		}
		if i > 0 && n > 0xFF {
			return 0, false
		}
		nums[i] = n
	}
	return nums[0]<<16 | nums[1]<<8 | nums[2], true
}
