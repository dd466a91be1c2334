package terminal

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ColorMode is the user's color preference.
type ColorMode int

const (
	// ColorAuto colors only interactive, color-capable terminals.
	ColorAuto ColorMode = iota
	// ColorAlways colors unconditionally.
	ColorAlways
	// ColorNever never colors.
	ColorNever
)

// ErrInvalidColorMode is returned by ParseColorMode.
var ErrInvalidColorMode = errors.New("invalid color mode")

// ParseColorMode parses "auto", "always" or "never". Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("%w: %q", ErrInvalidColorMode, s)
	}
}

func (m ColorMode) String() string {
	switch m {
	case ColorAlways:
		return "always"
	case ColorNever:
		return "never"
	default:
		return "auto"
	}
}

// explicitColor resolves the flag and environment preferences.
// The second result is false when nothing was set explicitly.
//
// Priority: flag, CLICOLOR_FORCE (truthy only), NO_COLOR (any value).
func explicitColor(mode ColorMode) (enabled, explicit bool) {
	switch mode {
	case ColorAlways:
		return true, true
	case ColorNever:
		return false, true
	}
	if v := os.Getenv("CLICOLOR_FORCE"); v != "" && isTruthy(v) {
		return true, true
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false, true
	}
	return false, false
}

// colorTerminals lists TERM values (or prefixes) known to handle ANSI colors.
var colorTerminals = []string{
	"xterm", "screen", "tmux", "rxvt", "vt100", "vt220",
	"ansi", "linux", "cygwin", "putty", "alacritty", "kitty",
}

// termSupportsColor inspects TERM and COLORTERM.
func termSupportsColor() bool {
	if os.Getenv("COLORTERM") != "" {
		return true
	}
	termName := strings.ToLower(strings.TrimSpace(os.Getenv("TERM")))
	if termName == "" || termName == "dumb" {
		return false
	}
	for _, known := range colorTerminals {
		if termName == known || strings.HasPrefix(termName, known+"-") {
			return true
		}
	}
	return strings.Contains(termName, "color")
}
