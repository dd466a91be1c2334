package bootstrap

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/isseis/go-ezerr/ezerr"
	"github.com/isseis/go-ezerr/internal/config"
	"github.com/isseis/go-ezerr/internal/publish/webhook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_RequiresConfig(t *testing.T) {
	_, err := Setup(Options{})
	assert.ErrorIs(t, err, ErrConfigRequired)
}

func TestSetup_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Report.Level = "shout"
	_, err := Setup(Options{Config: cfg})
	assert.ErrorIs(t, err, config.ErrInvalidLevel)

	cfg = config.Default()
	cfg.Log.Color = "rainbow"
	_, err = Setup(Options{Config: cfg, Console: &bytes.Buffer{}})
	assert.Error(t, err)
}

func TestSetup_ConsoleAndBus(t *testing.T) {
	console := &bytes.Buffer{}
	cfg := config.Default()
	cfg.Report.Kind = "NSError"
	redact := true
	cfg.Report.Redact = &redact

	rt, err := Setup(Options{Config: cfg, Console: console, ForceQuiet: true, RunID: "run-1"})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	ch, cancel := rt.Bus.SubscribeChan(2)
	defer cancel()

	ctx := ezerr.WithMainThread(context.Background())
	assert.True(t, rt.Reporter.Check(ctx, ezerr.New("net", 7, "token=abc timed out"), "", ezerr.Here()))
	assert.False(t, rt.Reporter.Check(ctx, ezerr.New("", 7, ""), "", ezerr.Here()))

	out := console.String()
	assert.True(t, strings.HasPrefix(out, "* * * * * * * * [NSError found]\n"), out)
	assert.Contains(t, out, "* Description   : token=[REDACTED] timed out")
	assert.Contains(t, out, "* Main thread   : Yes")
	assert.NotContains(t, out, "\033[", "quiet console is not colored")

	require.Len(t, ch, 1)
	ev := <-ch
	assert.Equal(t, "7", ev.Payload()[ezerr.KeyCode])
	assert.Equal(t, "run-1", rt.RunID)
	assert.False(t, rt.Capabilities().IsInteractive())
}

func TestSetup_RedactionOffByDefault(t *testing.T) {
	console := &bytes.Buffer{}
	rt, err := Setup(Options{Config: config.Default(), Console: console, ForceQuiet: true})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	ch, cancel := rt.Bus.SubscribeChan(1)
	defer cancel()

	rt.Reporter.Report(context.Background(), ezerr.New("x", 1, "token=abc"), "key token=abc", ezerr.Here())
	assert.Contains(t, console.String(), "* Description   : token=abc")

	require.Len(t, ch, 1)
	ev := <-ch
	assert.Equal(t, "key token=abc", ev.Payload()[ezerr.KeyDetail])
}

func TestSetup_MetricsWithInvalidUTF8Domain(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Console = config.ConsoleOff
	cfg.Metrics.Enabled = true

	rt, err := Setup(Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	ch, cancel := rt.Bus.SubscribeChan(1)
	defer cancel()

	ctx := ezerr.WithMainThread(context.Background())
	assert.NotPanics(t, func() {
		assert.True(t, rt.Reporter.Check(ctx, ezerr.New("bad\xff", 1, "x"), "d", ezerr.Here()))
	})
	assert.Len(t, ch, 1)
}

func TestSetup_JSONLogFile(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Log.Dir = dir
	cfg.Log.Console = config.ConsoleOff

	rt, err := Setup(Options{Config: cfg, RunID: "run-2"})
	require.NoError(t, err)
	assert.Nil(t, rt.Capabilities())

	rt.Reporter.Report(context.Background(), ezerr.New("disk", 28, "no space"), "write cache", ezerr.Here())
	require.NoError(t, rt.Close(context.Background()))

	matches, err := filepath.Glob(filepath.Join(dir, "*_run-2.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"domain":"disk"`)
	assert.Contains(t, string(data), `"run_id":"run-2"`)
	assert.Contains(t, string(data), `"ezerr_report":"error"`)
}

func TestSetup_NoSinks(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Console = config.ConsoleOff

	rt, err := Setup(Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	assert.NotEmpty(t, rt.RunID)
	assert.True(t, rt.Reporter.Check(context.Background(), ezerr.New("x", 1, ""), "", ezerr.Here()))
}

func TestSetup_Metrics(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Console = config.ConsoleOff
	cfg.Metrics.Enabled = true
	cfg.Metrics.Namespace = "boot"

	rt, err := Setup(Options{Config: cfg})
	require.NoError(t, err)
	defer rt.Close(context.Background())

	rt.Reporter.Report(context.Background(), ezerr.New("x", 1, ""), "", ezerr.Here())

	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "boot_errors_reported_total")
}

func TestSetup_InvalidWebhook(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Console = config.ConsoleOff
	cfg.Webhook.URL = "http://insecure.example.com/hook"

	_, err := Setup(Options{Config: cfg})
	assert.ErrorIs(t, err, webhook.ErrInvalidWebhookURL)
}

func TestSetup_WebhookClosesCleanly(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Console = config.ConsoleOff
	cfg.Webhook.URL = "https://hooks.example.invalid/T0/B0"

	rt, err := Setup(Options{Config: cfg})
	require.NoError(t, err)
	assert.NoError(t, rt.Close(context.Background()))
}
