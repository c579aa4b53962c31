// Package ttyguard keeps terminal capability probes out of machine-readable
// output. Import it for side effects from main:
//
//	import _ "github.com/vanderheijden86/swimlane/pkg/ttyguard"
//
// Lipgloss background detection can write OSC/DSR sequences to stdout the
// first time a style is rendered. Setting CI=1 makes termenv skip the probe,
// which keeps `sl ... --json` output parseable.
package ttyguard

import (
	"os"
	"strings"
)

func init() {
	if os.Getenv("CI") != "" {
		return
	}
	if !shouldSuppress(os.Args, os.Getenv("SWIMLANE_JSON") == "true", os.Getenv("SWIMLANE_TEST_MODE") != "") {
		return
	}
	_ = os.Setenv("CI", "1")
}

// shouldSuppress reports whether args describe a non-interactive run.
func shouldSuppress(args []string, envJSON, envTest bool) bool {
	if envJSON || envTest {
		return true
	}
	for _, arg := range args {
		switch {
		case arg == "--json", strings.HasPrefix(arg, "--json="):
			return true
		case arg == "--version", arg == "--help", arg == "-h", arg == "version":
			return true
		}
	}
	return false
}
