// Package config loads the engine's configuration: environment-driven
// application settings (transports, server, runtime limits) and the YAML
// delivery policy (routing defaults, dedupe windows, schedules).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig holds all application-level configuration loaded from environment
// variables. Channel transports are optional: a channel without credentials is
// registered as unavailable and logged, never treated as an error.
type AppConfig struct {
	// Port is the HTTP server port.
	Port int `envconfig:"PORT" default:"8790"`

	// DataDir is the root data directory. Defaults to ~/.lettera-notify.
	DataDir string `envconfig:"NOTIFIER_DATA_DIR"`

	// LogLevel sets the minimum log level (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PolicyFile points at the YAML delivery policy. Empty means built-in
	// defaults.
	PolicyFile string `envconfig:"NOTIFIER_POLICY_FILE"`

	// QueueSize bounds the event queue. Events beyond it are dropped with a
	// warning rather than blocking the producer.
	QueueSize int `envconfig:"NOTIFIER_QUEUE_SIZE" default:"256"`

	// DispatchWorkers is the number of goroutines draining the event queue.
	DispatchWorkers int `envconfig:"NOTIFIER_DISPATCH_WORKERS" default:"4"`

	// SendTimeout caps each external channel call so a hung transport never
	// starves the fan-out.
	SendTimeout time.Duration `envconfig:"NOTIFIER_SEND_TIMEOUT" default:"15s"`

	// SendRatePerSec throttles outbound channel calls across the engine.
	SendRatePerSec int `envconfig:"NOTIFIER_SEND_RATE" default:"10"`

	// ProfileCacheTTL bounds how long resolved preference profiles are
	// served from memory before re-reading storage.
	ProfileCacheTTL time.Duration `envconfig:"NOTIFIER_PROFILE_CACHE_TTL" default:"5m"`

	// SMTP transport (email channel).
	SMTPHost       string `envconfig:"SMTP_HOST"`
	SMTPPort       int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUsername   string `envconfig:"SMTP_USERNAME"`
	SMTPPassword   string `envconfig:"SMTP_PASSWORD"`
	SMTPFrom       string `envconfig:"SMTP_FROM"`
	SMTPEncryption string `envconfig:"SMTP_ENCRYPTION" default:"starttls"` // "none", "starttls", "ssl_tls"

	// Telegram transport (chat channel).
	TelegramToken string `envconfig:"TELEGRAM_BOT_TOKEN"`

	// Twilio transport (SMS channel).
	TwilioAccountSID string `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `envconfig:"TWILIO_FROM"`

	// FCM transport (push channel).
	FCMCredentialsFile string `envconfig:"FCM_CREDENTIALS_FILE"`
}

// Load reads AppConfig from environment variables using envconfig.
// DataDir defaults to ~/.lettera-notify if not set.
func Load() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, ".lettera-notify")
	}
	return &c, nil
}

// DatabasePath returns the SQLite database location under the data dir.
func (c *AppConfig) DatabasePath() string {
	return filepath.Join(c.DataDir, "notifier.db")
}

// LogDir returns the log directory under the data dir.
func (c *AppConfig) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// SlogLevel converts the LogLevel string to a slog.Level.
// Unknown values default to slog.LevelInfo.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
