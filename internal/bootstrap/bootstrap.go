// Package bootstrap wires a Reporter, its log handlers and its publishers
// from a config.Config.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/isseis/go-ezerr/ezerr"
	"github.com/isseis/go-ezerr/internal/config"
	"github.com/isseis/go-ezerr/internal/logging"
	"github.com/isseis/go-ezerr/internal/publish/bus"
	"github.com/isseis/go-ezerr/internal/publish/metrics"
	"github.com/isseis/go-ezerr/internal/publish/webhook"
	"github.com/isseis/go-ezerr/internal/redaction"
	"github.com/isseis/go-ezerr/internal/terminal"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrConfigRequired is returned when Options.Config is nil.
var ErrConfigRequired = errors.New("bootstrap: config is required")

// Options holds everything Setup needs besides the config file.
type Options struct {
	Config *config.Config

	// Console is the console stream; nil means os.Stderr.
	Console io.Writer

	// ForceInteractive and ForceQuiet come from command line flags and
	// override Config.Log.Console.
	ForceInteractive bool
	ForceQuiet       bool

	// Registry receives the metrics collectors; nil creates a fresh one.
	Registry *prometheus.Registry

	// RunID tags the JSON log file; empty generates one.
	RunID string
}

// Runtime is the wired result of Setup.
type Runtime struct {
	RunID    string
	Logger   *slog.Logger
	Reporter *ezerr.Reporter
	Bus      *bus.Bus
	Registry *prometheus.Registry

	capabilities terminal.Capabilities
	closers      []func(context.Context) error
}

// Setup builds the logger, the publishers and the reporter. Close the
// returned Runtime to flush queued webhooks and the log file.
func Setup(opts Options) (_ *Runtime, err error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := cfg.ReportLevel()

	rt := &Runtime{RunID: opts.RunID, Registry: opts.Registry}
	if rt.RunID == "" {
		rt.RunID = logging.GenerateRunID()
	}
	if rt.Registry == nil {
		rt.Registry = prometheus.NewRegistry()
	}
	defer func() {
		if err != nil {
			_ = rt.Close(context.Background())
		}
	}()

	if err := rt.setupLogger(cfg, opts, level); err != nil {
		return nil, err
	}

	publishers, err := rt.setupPublishers(cfg)
	if err != nil {
		return nil, err
	}

	reporterOpts := []ezerr.Option{
		ezerr.WithLogger(rt.Logger),
		ezerr.WithLevel(level),
		ezerr.WithKind(cfg.Report.Kind),
		ezerr.WithPlaceholder(cfg.Report.Placeholder),
		ezerr.WithPublisher(ezerr.MultiPublisher(publishers...)),
	}
	if cfg.Report.Redact != nil && *cfg.Report.Redact {
		reporterOpts = append(reporterOpts, ezerr.WithRedactor(redaction.Default()))
	}
	rt.Reporter = ezerr.NewReporter(reporterOpts...)

	rt.Logger.Debug("Reporter initialized",
		"run_id", rt.RunID,
		"kind", cfg.Report.Kind,
		"level", level,
		"log_dir", cfg.Log.Dir,
		"console", cfg.Log.Console,
		"webhook_enabled", cfg.Webhook.URL != "",
		"metrics_enabled", cfg.Metrics.Enabled)
	return rt, nil
}

func (rt *Runtime) setupLogger(cfg *config.Config, opts Options, level slog.Level) error {
	// Operational messages (webhook failures and the like) are Info and up;
	// a lower report level lowers the threshold with it.
	handlerLevel := min(level, slog.LevelInfo)

	var handlers []slog.Handler

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	if cfg.Log.Console != config.ConsoleOff || opts.ForceInteractive {
		colorMode, err := terminal.ParseColorMode(cfg.Log.Color)
		if err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		rt.capabilities = terminal.NewCapabilities(console, terminal.Options{
			DetectorOptions: terminal.DetectorOptions{
				ForceInteractive:    opts.ForceInteractive || cfg.Log.Console == config.ConsoleInteractive,
				ForceNonInteractive: opts.ForceQuiet || cfg.Log.Console == config.ConsolePlain,
			},
			Color: colorMode,
		})
		blockHandler, err := logging.NewBlockHandler(logging.BlockHandlerOptions{
			Level:        handlerLevel,
			Writer:       console,
			Capabilities: rt.capabilities,
		})
		if err != nil {
			return fmt.Errorf("failed to create console handler: %w", err)
		}
		handlers = append(handlers, blockHandler)
	}

	if cfg.Log.Dir != "" {
		f, err := logging.OpenRunLog(cfg.Log.Dir, rt.RunID)
		if err != nil {
			return fmt.Errorf("invalid log directory: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return f.Close() })
		handlers = append(handlers, logging.NewJSONFileHandler(f, handlerLevel, rt.RunID))
	}

	if len(handlers) == 0 {
		rt.Logger = slog.New(slog.DiscardHandler)
		return nil
	}
	multi, err := logging.NewMultiHandler(handlers...)
	if err != nil {
		return fmt.Errorf("failed to create multi handler: %w", err)
	}
	rt.Logger = slog.New(multi)
	return nil
}

func (rt *Runtime) setupPublishers(cfg *config.Config) ([]ezerr.Publisher, error) {
	rt.Bus = bus.New(rt.Logger)
	publishers := []ezerr.Publisher{rt.Bus}

	if cfg.Metrics.Enabled {
		m, err := metrics.New(rt.Registry, cfg.Metrics.Namespace)
		if err != nil {
			return nil, err
		}
		publishers = append(publishers, m)
	}

	if cfg.Webhook.URL != "" {
		backoff, _ := cfg.WebhookBackoff()
		retries := config.DefaultWebhookRetries
		if cfg.Webhook.RetryCount != nil {
			retries = *cfg.Webhook.RetryCount
		}
		wh, err := webhook.New(webhook.Options{
			URL:       cfg.Webhook.URL,
			Format:    webhook.Format(cfg.Webhook.Format),
			QueueSize: cfg.Webhook.QueueSize,
			Backoff:   webhook.BackoffConfig{Base: backoff, RetryCount: retries},
			Logger:    rt.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create webhook publisher: %w", err)
		}
		// Webhooks drain before the log file closes.
		rt.closers = append([]func(context.Context) error{wh.Close}, rt.closers...)
		publishers = append(publishers, wh)
	}

	return publishers, nil
}

// Capabilities returns the console capabilities, or nil when the console
// handler is off.
func (rt *Runtime) Capabilities() terminal.Capabilities {
	return rt.capabilities
}

// Close drains the webhook queue and closes the log file.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for _, closeFn := range rt.closers {
		if err := closeFn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
