package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsToLongpoll(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: \"123:abc\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want %q", cfg.Telegram.RunMode, RunModeLongpoll)
	}
}

func TestLoadEnvOverridesToken(t *testing.T) {
	path := writeConfig(t, "telegram:\n  token: \"from-file\"\n  run_mode: polling\n")
	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, want env value", cfg.Telegram.Token)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("polling alias not normalized: %q", cfg.Telegram.RunMode)
	}
}

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-only")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-only" {
		t.Fatalf("token = %q", cfg.Telegram.Token)
	}
}

func TestNormalizeRejectsInvalid(t *testing.T) {
	cases := map[string]Config{
		"missing token": {},
		"bad run mode":  {Telegram: TelegramConfig{Token: "t", RunMode: "smoke"}},
		"webhook without url": {
			Telegram: TelegramConfig{Token: "t", RunMode: RunModeWebhook},
		},
		"bad exclude": {
			Telegram:  TelegramConfig{Token: "t"},
			RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
		},
	}
	for name, cfg := range cases {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			if err := Normalize(&cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNormalizeLowercasesExclusions(t *testing.T) {
	cfg := Config{
		Telegram:  TelegramConfig{Token: "t"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{" Callback "}},
	}
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !cfg.RateLimit.Excludes(UpdateCallback) || cfg.RateLimit.Excludes(UpdateMessage) {
		t.Fatalf("exclude = %q", cfg.RateLimit.ExcludeUpdates)
	}
}

func TestNormalizeNamesMissingWebhookFields(t *testing.T) {
	cfg := Config{
		Telegram: TelegramConfig{Token: "t", RunMode: "Webhook"},
		Webhook:  WebhookConfig{URL: "https://example.org/hook"},
	}
	err := Normalize(&cfg)
	if err == nil || !strings.Contains(err.Error(), "webhook.listen, webhook.port") {
		t.Fatalf("Normalize error = %v", err)
	}

	cfg.Webhook.Listen, cfg.Webhook.Port = "0.0.0.0", 8443
	if err := Normalize(&cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Webhook.Addr() != "0.0.0.0:8443" {
		t.Fatalf("Addr = %s", cfg.Webhook.Addr())
	}
}

func TestDurations(t *testing.T) {
	if got := (TelegramConfig{}).LongPollTimeout(); got != 10*time.Second {
		t.Fatalf("default long poll timeout = %s", got)
	}
	if got := (TelegramConfig{LongPollTimeoutSeconds: 25}).LongPollTimeout(); got != 25*time.Second {
		t.Fatalf("long poll timeout = %s", got)
	}
	if got := (RateLimitConfig{IntervalMS: 700}).Interval(); got != 700*time.Millisecond {
		t.Fatalf("rate limit interval = %s", got)
	}
}
