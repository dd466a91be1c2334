package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRunID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateRunID()
		assert.NotEmpty(t, id)
		assert.False(t, seen[id], "duplicate run id %s", id)
		seen[id] = true
	}
}

func TestRunLogPath(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	path := RunLogPath("/var/log/ezerr", "run-1", now)

	assert.Equal(t, "/var/log/ezerr", filepath.Dir(path))
	assert.True(t, strings.HasSuffix(path, "_20250102T030405Z_run-1.json"), path)
}

func TestOpenRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	f, err := OpenRunLog(dir, "run-2")
	require.NoError(t, err)
	defer f.Close()

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Equal(t, logFilePerm, info.Mode().Perm())
	assert.True(t, strings.HasSuffix(f.Name(), "_run-2.json"))
}

func TestOpenRunLog_EmptyDir(t *testing.T) {
	_, err := OpenRunLog("", "run")
	assert.ErrorIs(t, err, ErrEmptyLogDirectory)
}

func TestOpenRunLog_RefusesSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target.json")
	require.NoError(t, os.WriteFile(target, nil, 0o600))

	// Pre-create a symlink at the name OpenRunLog picks within this second.
	link := RunLogPath(dir, "run-3", time.Now())
	require.NoError(t, os.Symlink(target, link))

	_, err := OpenRunLog(dir, "run-3")
	if err == nil {
		t.Skip("clock moved to the next second; symlink not hit")
	}
	assert.Error(t, err)
}

func TestNewJSONFileHandler(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := slog.New(NewJSONFileHandler(buf, slog.LevelInfo, "run-4"))

	logger.Debug("dropped")
	logger.Error("kept", "domain", "net")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "net", entry["domain"])
	assert.Equal(t, "run-4", entry["run_id"])
	assert.Equal(t, float64(schemaVersion), entry["schema_version"])
	assert.NotEmpty(t, entry["hostname"])
}
