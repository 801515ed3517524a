// Package version provides build-time version information.
package version

import (
	"fmt"
	"runtime"
)

// Name is the program name shown in window titles and logs.
const Name = "Screenshot Pro"

// Set at build time with -ldflags "-X screenshot-pro/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// String is the one-line version report.
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", Name, Version, GitCommit, BuildTime, runtime.Version())
}
