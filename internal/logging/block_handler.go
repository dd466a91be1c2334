package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/isseis/go-ezerr/ezerr"
	"github.com/isseis/go-ezerr/internal/color"
	"github.com/isseis/go-ezerr/internal/terminal"
)

// Static errors for BlockHandler validation
var (
	ErrBlockHandlerWriterRequired       = errors.New("BlockHandler: Writer is required")
	ErrBlockHandlerCapabilitiesRequired = errors.New("BlockHandler: Capabilities is required")
)

const (
	frameMarker = "* * * * * * * *"
	// labelWidth is the width of "* Detail        :".
	labelWidth = 17
)

// BlockHandler is the console handler. Report records (those carrying
// ezerr.LogAttrReport) are written as their multi-line message, colored per
// line; any other record is written as a single "LEVEL message key=value" line.
type BlockHandler struct {
	writer       io.Writer
	mu           *sync.Mutex
	capabilities terminal.Capabilities
	level        slog.Leveler
	attrs        []slog.Attr
	groups       []string
}

// BlockHandlerOptions configures the BlockHandler.
type BlockHandlerOptions struct {
	// Level is the minimum level to write; nil means slog.LevelInfo.
	Level slog.Leveler

	// Writer is the console stream, typically os.Stderr.
	Writer io.Writer

	// Capabilities decides whether output is colored.
	Capabilities terminal.Capabilities
}

// NewBlockHandler creates a BlockHandler.
func NewBlockHandler(opts BlockHandlerOptions) (*BlockHandler, error) {
	if opts.Writer == nil {
		return nil, ErrBlockHandlerWriterRequired
	}
	if opts.Capabilities == nil {
		return nil, ErrBlockHandlerCapabilitiesRequired
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &BlockHandler{
		writer:       opts.Writer,
		mu:           &sync.Mutex{},
		capabilities: opts.Capabilities,
		level:        level,
	}, nil
}

// Enabled reports whether level reaches the configured minimum.
func (h *BlockHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle writes r.
func (h *BlockHandler) Handle(_ context.Context, r slog.Record) error {
	useColor := h.capabilities.SupportsColor()

	var out string
	if isReport(r) {
		out = formatBlock(r.Message, color.ForLevel(r.Level, useColor))
	} else {
		out = h.formatLine(r, useColor)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, out+"\n")
	return err
}

func isReport(r slog.Record) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == ezerr.LogAttrReport {
			found = true
			return false
		}
		return true
	})
	return found
}

// formatBlock colors each line of a report block.
func formatBlock(block string, p color.Palette) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, frameMarker):
			lines[i] = p.Frame(line)
		case len(line) >= labelWidth && line[labelWidth-1] == ':':
			lines[i] = p.Label(line[:labelWidth]) + p.Value(line[labelWidth:])
		}
	}
	return strings.Join(lines, "\n")
}

func (h *BlockHandler) formatLine(r slog.Record, useColor bool) string {
	var b strings.Builder
	levelText := r.Level.String()
	if useColor {
		levelText = color.ForLevel(r.Level, true).Frame(levelText)
	}
	b.WriteString(levelText)
	b.WriteByte(' ')
	b.WriteString(r.Message)

	prefix := h.groupPrefix()
	writeAttr := func(key string, a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		if useColor {
			key = color.Cyan(key)
		}
		fmt.Fprintf(&b, " %s=%v", key, a.Value.Resolve())
	}
	for _, a := range h.attrs {
		writeAttr(a.Key, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(prefix+a.Key, a)
		return true
	})
	return b.String()
}

func (h *BlockHandler) groupPrefix() string {
	if len(h.groups) == 0 {
		return ""
	}
	return strings.Join(h.groups, ".") + "."
}

// WithAttrs returns a handler that appends attrs to plain lines. Keys are
// qualified with the groups open at the time of the call.
func (h *BlockHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	prefix := h.groupPrefix()
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		a.Key = prefix + a.Key
		next.attrs = append(next.attrs, a)
	}
	return &next
}

// WithGroup returns a handler that prefixes attribute keys with name.
func (h *BlockHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}
