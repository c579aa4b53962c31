// Package version holds the sl release version.
package version

// Version is overridden at release time via:
//
//	go build -ldflags "-X github.com/vanderheijden86/swimlane/pkg/version.Version=v0.2.0"
var Version = "v0.1.0-dev"

// String returns the version prefixed with the binary name.
func String() string {
	return "sl " + Version
}
