// Package config loads the reporter configuration from a TOML file and
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults
const (
	DefaultKind             = "error"
	DefaultPlaceholder      = "No detail"
	DefaultLevel            = "error"
	DefaultConsole          = ConsoleAuto
	DefaultColor            = "auto"
	DefaultWebhookFormat    = "json"
	DefaultWebhookQueueSize = 64
	DefaultWebhookRetries   = 3
	DefaultWebhookBackoff   = "2s"
	DefaultMetricsNamespace = "ezerr"
)

// Console modes
const (
	ConsoleAuto        = "auto"
	ConsoleInteractive = "interactive"
	ConsolePlain       = "plain"
	ConsoleOff         = "off"
)

// Error definitions for the config package
var (
	ErrInvalidConfigPath = errors.New("invalid config file path")
	ErrInvalidLevel      = errors.New("invalid report level")
	ErrInvalidConsole    = errors.New("invalid console mode")
	ErrInvalidBackoff    = errors.New("invalid webhook backoff")
	ErrInvalidQueueSize  = errors.New("invalid webhook queue size")
)

// Config is the complete reporter configuration.
type Config struct {
	Report  ReportConfig  `toml:"report"`
	Log     LogConfig     `toml:"log"`
	Webhook WebhookConfig `toml:"webhook"`
	Metrics MetricsConfig `toml:"metrics"`
}

// ReportConfig controls the report block itself.
type ReportConfig struct {
	Kind        string `toml:"kind"`
	Placeholder string `toml:"placeholder"`
	Level       string `toml:"level"`
	Redact      *bool  `toml:"redact"`
}

// LogConfig controls where report blocks are logged.
type LogConfig struct {
	Dir     string `toml:"dir"`
	Console string `toml:"console"`
	Color   string `toml:"color"`
}

// WebhookConfig controls HTTP delivery of events. Empty URL disables it.
type WebhookConfig struct {
	URL         string `toml:"url"`
	Format      string `toml:"format"`
	QueueSize   int    `toml:"queue_size"`
	RetryCount  *int   `toml:"retry_count"`
	BackoffBase string `toml:"backoff_base"`
}

// MetricsConfig controls the Prometheus publisher.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
	Listen    string `toml:"listen"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads and parses the TOML file at path. An empty path yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	if strings.ContainsRune(path, 0) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidConfigPath, path)
	}
	// #nosec G304 - the path comes from the operator's command line
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML content, rejecting unknown keys, and applies defaults.
func Parse(content []byte) (*Config, error) {
	var cfg Config
	dec := toml.NewDecoder(bytes.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills every unset field.
func (c *Config) ApplyDefaults() {
	if c.Report.Kind == "" {
		c.Report.Kind = DefaultKind
	}
	if c.Report.Placeholder == "" {
		c.Report.Placeholder = DefaultPlaceholder
	}
	if c.Report.Level == "" {
		c.Report.Level = DefaultLevel
	}
	if c.Report.Redact == nil {
		redact := false
		c.Report.Redact = &redact
	}
	if c.Log.Console == "" {
		c.Log.Console = DefaultConsole
	}
	if c.Log.Color == "" {
		c.Log.Color = DefaultColor
	}
	if c.Webhook.Format == "" {
		c.Webhook.Format = DefaultWebhookFormat
	}
	if c.Webhook.QueueSize == 0 {
		c.Webhook.QueueSize = DefaultWebhookQueueSize
	}
	if c.Webhook.RetryCount == nil {
		retries := DefaultWebhookRetries
		c.Webhook.RetryCount = &retries
	}
	if c.Webhook.BackoffBase == "" {
		c.Webhook.BackoffBase = DefaultWebhookBackoff
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultMetricsNamespace
	}
	if c.Metrics.Listen != "" {
		c.Metrics.Enabled = true
	}
}

// Validate checks the values that the TOML decoder cannot.
// Webhook URL and format are validated when the publisher is built.
func (c *Config) Validate() error {
	if _, err := c.ReportLevel(); err != nil {
		return err
	}
	switch c.Log.Console {
	case ConsoleAuto, ConsoleInteractive, ConsolePlain, ConsoleOff:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidConsole, c.Log.Console)
	}
	if c.Webhook.QueueSize < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQueueSize, c.Webhook.QueueSize)
	}
	if _, err := c.WebhookBackoff(); err != nil {
		return err
	}
	return nil
}

// ReportLevel parses Report.Level ("debug", "info", "warn", "error").
func (c *Config) ReportLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Report.Level)); err != nil {
		return slog.LevelError, fmt.Errorf("%w: %q", ErrInvalidLevel, c.Report.Level)
	}
	return level, nil
}

// WebhookBackoff parses Webhook.BackoffBase.
func (c *Config) WebhookBackoff() (time.Duration, error) {
	d, err := time.ParseDuration(c.Webhook.BackoffBase)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidBackoff, c.Webhook.BackoffBase)
	}
	return d, nil
}
