// Package version reports build metadata stamped in with -ldflags
package version

import "runtime"

// BuildInfo is served on /meta/version and logged at boot
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// Set with -ldflags "-X 'swiftconcur/internal/core/version.version=v0.3.0'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the stamped metadata for service
func Info(service string) BuildInfo {
	return BuildInfo{
		Service: service,
		Version: version,
		Commit:  commit,
		Date:    date,
		Go:      runtime.Version(),
	}
}
