// Package utils provides bespoke, one off utils that don't make sense to be
// their own package
package utils

import "runtime"

// Set at link time with -X.
var (
	Version   = "dev"
	Sha       = "HEAD"
	Buildtime = "dev"
)

// BuildInfo is the version stamp reported by `memoir version` and the API
// health endpoint.
type BuildInfo struct {
	Version   string `json:"version"`
	Sha       string `json:"sha"`
	Buildtime string `json:"built_at"`
	GoVersion string `json:"go_version"`
}

func Build() BuildInfo {
	return BuildInfo{Version: Version, Sha: Sha, Buildtime: Buildtime, GoVersion: runtime.Version()}
}
