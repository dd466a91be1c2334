// Package terminal decides whether report output goes to an interactive
// terminal and whether it may be colored.
package terminal

import (
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ciEnvVars contains common CI environment variables
var ciEnvVars = []string{
	"CI",                     // Generic CI indicator
	"CONTINUOUS_INTEGRATION", // Generic CI indicator
	"GITHUB_ACTIONS",         // GitHub Actions
	"GITLAB_CI",              // GitLab CI
	"CIRCLECI",               // Circle CI
	"JENKINS_URL",            // Jenkins
	"BUILDKITE",              // Buildkite
	"TF_BUILD",               // Azure DevOps
}

// fder is implemented by *os.File.
type fder interface {
	Fd() uintptr
}

// DetectorOptions forces the interactive decision.
type DetectorOptions struct {
	ForceInteractive    bool
	ForceNonInteractive bool
}

// Detector reports whether output written to a stream reaches a person.
type Detector struct {
	options DetectorOptions
	out     io.Writer
}

// NewDetector creates a Detector for out.
func NewDetector(out io.Writer, options DetectorOptions) *Detector {
	return &Detector{options: options, out: out}
}

// IsInteractive applies, in order: command line overrides, CI detection,
// then terminal detection on the output stream.
func (d *Detector) IsInteractive() bool {
	if d.options.ForceInteractive {
		return true
	}
	if d.options.ForceNonInteractive {
		return false
	}
	if IsCIEnvironment() {
		return false
	}
	return IsTerminal(d.out)
}

// IsTerminal reports whether w is a file descriptor attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(fder)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// IsCIEnvironment reports whether a CI system is detected.
func IsCIEnvironment() bool {
	for _, envVar := range ciEnvVars {
		value, ok := os.LookupEnv(envVar)
		if !ok || value == "" {
			continue
		}
		// CI=false and friends do not count
		if envVar == "CI" {
			return !isFalsy(value)
		}
		return true
	}
	return false
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func isFalsy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "false", "no":
		return true
	default:
		return false
	}
}
