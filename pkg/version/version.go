// Package version exposes the build metadata stamped into the protoforge binary.
package version

import "runtime/debug"

// Populated at release time via -ldflags:
//
//	-X github.com/Sumatoshi-tech/protoforge/pkg/version.Version=v1.2.3
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// InitBinaryVersion backfills Commit and Date from the VCS metadata the Go
// toolchain embeds, for binaries built with plain `go build` (no ldflags).
func InitBinaryVersion() {
	if Commit != "none" {
		return
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			Commit = setting.Value
		case "vcs.time":
			Date = setting.Value
		}
	}
}
