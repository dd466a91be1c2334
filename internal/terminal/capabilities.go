package terminal

import (
	"io"
	"os"
)

// Options configures capability detection.
type Options struct {
	DetectorOptions
	Color ColorMode
}

// Capabilities describes what a console stream can do.
type Capabilities interface {
	IsInteractive() bool
	SupportsColor() bool
}

// StreamCapabilities is the Capabilities of one output stream.
type StreamCapabilities struct {
	detector *Detector
	color    ColorMode
}

// NewCapabilities detects the capabilities of out.
func NewCapabilities(out io.Writer, options Options) *StreamCapabilities {
	return &StreamCapabilities{
		detector: NewDetector(out, options.DetectorOptions),
		color:    options.Color,
	}
}

// IsInteractive reports whether the stream is treated as interactive.
func (c *StreamCapabilities) IsInteractive() bool {
	return c.detector.IsInteractive()
}

// SupportsColor applies, in order: explicit preferences (flag,
// CLICOLOR_FORCE, NO_COLOR), interactivity, CLICOLOR, then TERM.
func (c *StreamCapabilities) SupportsColor() bool {
	if enabled, explicit := explicitColor(c.color); explicit {
		return enabled
	}
	if !c.IsInteractive() || !termSupportsColor() {
		return false
	}
	// CLICOLOR only applies to interactive output
	if v := os.Getenv("CLICOLOR"); v != "" {
		return isTruthy(v)
	}
	return true
}

// Static is a fixed Capabilities, handy for tests and plain writers.
type Static struct {
	Interactive bool
	Color       bool
}

// IsInteractive returns s.Interactive.
func (s Static) IsInteractive() bool { return s.Interactive }

// SupportsColor returns s.Color.
func (s Static) SupportsColor() bool { return s.Color }
