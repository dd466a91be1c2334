package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables overriding the file configuration.
const (
	EnvKind          = "EZERR_KIND"
	EnvPlaceholder   = "EZERR_PLACEHOLDER"
	EnvLevel         = "EZERR_LEVEL"
	EnvLogDir        = "EZERR_LOG_DIR"
	EnvWebhookURL    = "EZERR_WEBHOOK_URL"
	EnvWebhookFormat = "EZERR_WEBHOOK_FORMAT"
	EnvMetricsListen = "EZERR_METRICS_LISTEN"
)

// defaultEnvFile is loaded when present and no file is named explicitly.
const defaultEnvFile = ".env"

// LoadEnvFile loads variables from path into the process environment
// without overriding variables that are already set. With an empty path,
// ".env" is loaded if it exists.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(defaultEnvFile); errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		path = defaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(EnvKind, &c.Report.Kind)
	set(EnvPlaceholder, &c.Report.Placeholder)
	set(EnvLevel, &c.Report.Level)
	set(EnvLogDir, &c.Log.Dir)
	set(EnvWebhookURL, &c.Webhook.URL)
	set(EnvWebhookFormat, &c.Webhook.Format)
	set(EnvMetricsListen, &c.Metrics.Listen)
	if c.Metrics.Listen != "" {
		c.Metrics.Enabled = true
	}
}
