package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrEmptyLogDirectory = errors.New("log directory cannot be empty")
	ErrNotRegularFile    = errors.New("log path is not a regular file")
)

const (
	logDirPerm  os.FileMode = 0o750
	logFilePerm os.FileMode = 0o600

	// schemaVersion is bumped when the JSON log attributes change.
	schemaVersion = 1
)

// GenerateRunID returns a new UUID v4 identifying one process run.
func GenerateRunID() string {
	return uuid.New().String()
}

// Hostname returns the host name or "unknown".
func Hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "unknown"
	}
	return name
}

// RunLogPath returns <dir>/<hostname>_<timestamp>_<runID>.json.
func RunLogPath(dir, runID string, now time.Time) string {
	name := fmt.Sprintf("%s_%s_%s.json", Hostname(), now.UTC().Format("20060102T150405Z"), runID)
	return filepath.Join(dir, name)
}

// OpenRunLog creates the log directory if needed and opens a new run log
// file in it. Symlinks at the final path component are refused.
func OpenRunLog(dir, runID string) (*os.File, error) {
	if dir == "" {
		return nil, ErrEmptyLogDirectory
	}
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}

	path := RunLogPath(dir, runID, time.Now())
	// #nosec G304 - path is built from the configured directory and a generated name
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND|syscall.O_NOFOLLOW, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to stat log file %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, path)
	}
	return f, nil
}

// NewJSONFileHandler returns a JSON handler writing to w and tagging every
// record with hostname, pid, schema version and run ID.
func NewJSONFileHandler(w io.Writer, level slog.Leveler, runID string) slog.Handler {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return handler.WithAttrs([]slog.Attr{
		slog.String("hostname", Hostname()),
		slog.Int("pid", os.Getpid()),
		slog.Int("schema_version", schemaVersion),
		slog.String("run_id", runID),
	})
}
