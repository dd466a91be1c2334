// Package redaction masks credentials that end up in error details and
// descriptions before they are logged or published.
package redaction

import (
	"regexp"
	"strings"
)

// DefaultPlaceholder replaces redacted values.
const DefaultPlaceholder = "[REDACTED]"

// DefaultKeyValuePatterns returns the keys whose values are masked.
//
// A plain key matches "key=value". A key ending in a space (e.g. "Bearer ")
// masks the following token. A key ending in ':' masks the rest of the line.
func DefaultKeyValuePatterns() []string {
	return []string{
		"password",
		"passwd",
		"token",
		"secret",
		"api_key",
		"_KEY",
		"Bearer ",
		"Basic ",
		"Authorization:",
	}
}

// Redactor masks key/value style credentials in free text.
type Redactor struct {
	placeholder string
	rules       []rule
}

type rule struct {
	re      *regexp.Regexp
	replace string
}

// New compiles a Redactor. An empty placeholder uses DefaultPlaceholder and
// nil patterns use DefaultKeyValuePatterns.
func New(placeholder string, patterns []string) *Redactor {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	if patterns == nil {
		patterns = DefaultKeyValuePatterns()
	}

	r := &Redactor{placeholder: placeholder}
	for _, p := range patterns {
		if p == "" {
			continue
		}
		r.rules = append(r.rules, compileRule(p, placeholder))
	}
	return r
}

// Default returns a Redactor with the default placeholder and patterns.
func Default() *Redactor {
	return New("", nil)
}

func compileRule(pattern, placeholder string) rule {
	quoted := regexp.QuoteMeta(pattern)
	repl := strings.ReplaceAll(placeholder, "$", "$$")
	switch {
	case strings.HasSuffix(pattern, ":"):
		// header style: keep the scheme, drop the rest of the line
		return rule{
			re:      regexp.MustCompile(`(?i)(` + quoted + `[ \t]*)((?:bearer |basic )?)[^\r\n]+`),
			replace: "${1}${2}" + repl,
		}
	case strings.HasSuffix(pattern, " "):
		return rule{
			re:      regexp.MustCompile(`(?i)(` + quoted + `)\S+`),
			replace: "${1}" + repl,
		}
	default:
		return rule{
			re:      regexp.MustCompile(`(?i)(` + quoted + `\S*?=)\S+`),
			replace: "${1}" + repl,
		}
	}
}

// RedactText returns text with every matching credential replaced.
func (r *Redactor) RedactText(text string) string {
	if text == "" {
		return text
	}
	for _, rl := range r.rules {
		text = rl.re.ReplaceAllString(text, rl.replace)
	}
	return text
}
