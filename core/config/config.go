// Package config holds the settings consumed by the Telegram runtime:
// credentials, update delivery, logging and per-user rate limiting.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Update delivery modes accepted by telegram.run_mode.
const (
	RunModeLongpoll = "longpoll"
	RunModeWebhook  = "webhook"
)

// Update classes that rate_limit.exclude_updates may name.
const (
	UpdateCallback = "callback"
	UpdateMessage  = "message"
)

const defaultLongPollTimeout = 10 * time.Second

// TelegramConfig identifies the bot and selects how updates arrive.
type TelegramConfig struct {
	Token                  string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID                int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode                string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	LongPollTimeoutSeconds int    `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// LongPollTimeout is the getUpdates wait; zero selects 10s.
func (t TelegramConfig) LongPollTimeout() time.Duration {
	if t.LongPollTimeoutSeconds <= 0 {
		return defaultLongPollTimeout
	}
	return time.Duration(t.LongPollTimeoutSeconds) * time.Second
}

func (t *TelegramConfig) normalize() error {
	if strings.TrimSpace(t.Token) == "" {
		return errors.New("config: telegram.token is required")
	}
	mode := strings.ToLower(strings.TrimSpace(t.RunMode))
	switch mode {
	case "", "polling":
		mode = RunModeLongpoll
	case RunModeLongpoll, RunModeWebhook:
	default:
		return fmt.Errorf("config: telegram.run_mode %q is not one of longpoll, webhook", t.RunMode)
	}
	if t.LongPollTimeoutSeconds < 0 {
		return errors.New("config: telegram.longpoll_timeout_seconds must not be negative")
	}
	t.RunMode = mode
	return nil
}

// WebhookConfig is only read in webhook mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// Addr is the local address the webhook server binds.
func (w WebhookConfig) Addr() string {
	return net.JoinHostPort(w.Listen, strconv.Itoa(w.Port))
}

func (w WebhookConfig) validate() error {
	var missing []string
	if strings.TrimSpace(w.URL) == "" {
		missing = append(missing, "webhook.url")
	}
	if strings.TrimSpace(w.Listen) == "" {
		missing = append(missing, "webhook.listen")
	}
	if w.Port <= 0 {
		missing = append(missing, "webhook.port")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: webhook mode needs %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoggingConfig drives the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	// DebugSample keeps one debug event in N per key, where a key names an
	// event or a component, e.g. "update.received=50,tg.sender=10".
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	// File duplicates the log stream into the named file.
	File string `yaml:"file" envconfig:"LOG_FILE"`
}

// RateLimitConfig enforces a minimum gap between updates of one user.
type RateLimitConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	// ExcludeUpdates lists update classes (callback, message) that bypass the limit.
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Interval is the configured gap; zero disables limiting.
func (r RateLimitConfig) Interval() time.Duration {
	return time.Duration(r.IntervalMS) * time.Millisecond
}

// Excludes reports whether updates of class are never limited.
func (r RateLimitConfig) Excludes(class string) bool {
	return slices.Contains(r.ExcludeUpdates, class)
}

func (r *RateLimitConfig) normalize() error {
	if r.IntervalMS < 0 {
		return errors.New("config: rate_limit.interval_ms must not be negative")
	}
	kept := r.ExcludeUpdates[:0]
	for _, raw := range r.ExcludeUpdates {
		class := strings.ToLower(strings.TrimSpace(raw))
		switch class {
		case "":
			continue
		case UpdateCallback, UpdateMessage:
			kept = append(kept, class)
		default:
			return fmt.Errorf("config: rate_limit.exclude_updates value %q is not one of callback, message", raw)
		}
	}
	r.ExcludeUpdates = kept
	return nil
}

// Config is the runtime part of the bot configuration. Bots embed it
// inline next to their own sections.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Decode fills dst from the YAML file at path, then from the environment.
// A missing file is not an error so deployments may rely on env alone.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, dst); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Load decodes and normalizes a standalone runtime configuration.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	if err := Decode(path, cfg); err != nil {
		return nil, err
	}
	if err := Normalize(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize validates cfg and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	if err := cfg.Telegram.normalize(); err != nil {
		return err
	}
	if cfg.Telegram.RunMode == RunModeWebhook {
		if err := cfg.Webhook.validate(); err != nil {
			return err
		}
	}
	return cfg.RateLimit.normalize()
}
