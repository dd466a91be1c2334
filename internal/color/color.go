// Package color wraps text in ANSI escape sequences for console output.
//
//nolint:revive // package name conflicts with standard library
package color

import "log/slog"

// ANSI color codes
const (
	resetCode  = "\033[0m"
	grayCode   = "\033[90m"
	redCode    = "\033[31m"
	yellowCode = "\033[33m"
	blueCode   = "\033[34m"
	cyanCode   = "\033[36m"
)

// Color wraps text with an ANSI escape sequence.
type Color func(text string) string

// NewColor creates a Color for the given ANSI code.
func NewColor(ansiCode string) Color {
	return func(text string) string {
		if text == "" {
			return text
		}
		return ansiCode + text + resetCode
	}
}

// None leaves text unchanged.
func None(text string) string { return text }

// Predefined colors
var (
	Gray   = NewColor(grayCode)
	Red    = NewColor(redCode)
	Yellow = NewColor(yellowCode)
	Blue   = NewColor(blueCode)
	Cyan   = NewColor(cyanCode)
)

// Palette colors the parts of a report block.
type Palette struct {
	Frame Color // start and end marker lines
	Label Color // "* Detail        :" column
	Value Color
}

// ForLevel picks the palette for a log level. With enabled false every
// part is left uncolored.
func ForLevel(level slog.Level, enabled bool) Palette {
	if !enabled {
		return Palette{Frame: None, Label: None, Value: None}
	}
	frame := Blue
	switch {
	case level >= slog.LevelError:
		frame = Red
	case level >= slog.LevelWarn:
		frame = Yellow
	case level < slog.LevelInfo:
		frame = Gray
	}
	return Palette{Frame: frame, Label: Gray, Value: None}
}
