// Package version holds build metadata injected at link time:
//
//	go build -ldflags "-X gigachat/internal/version.Version=v1.2.0 -X gigachat/internal/version.Commit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Info returns a one-line description of the build.
func Info() string {
	return fmt.Sprintf("gigachat %s (commit: %s, built: %s, %s %s/%s)",
		Version, Commit, Date, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent is the default User-Agent sent by the client.
func UserAgent() string {
	return "gigachat-go/" + Version
}
