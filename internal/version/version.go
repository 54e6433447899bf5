package version

import (
	"fmt"
	"runtime"
)

// Name identifies the service in logs and on GET /version
const Name = "hospital-bulk-server"

// Set at build time with -ldflags "-X github.com/ryabkov82/hospital-bulk-server/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info returns build metadata keyed the way GET /version reports it
func Info() map[string]string {
	return map[string]string{
		"name":      Name,
		"version":   Version,
		"gitCommit": GitCommit,
		"buildTime": BuildTime,
		"goVersion": runtime.Version(),
	}
}

// String returns a one-line banner for startup logs
func String() string {
	return fmt.Sprintf("%s %s (commit %s, built %s, %s)", Name, Version, GitCommit, BuildTime, runtime.Version())
}
