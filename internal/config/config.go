// Package config loads the insurance bot configuration on top of the core
// Telegram settings.
package config

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/insurebot/core/config"
)

const (
	// ProviderMindee reads documents through the Mindee REST API.
	ProviderMindee = "mindee"
	// ProviderGemini uses Google Gemini for OCR or generation.
	ProviderGemini = "gemini"
	// ProviderOllama generates policies with a local Ollama server.
	ProviderOllama = "ollama"
)

const (
	defaultPrice          = 100
	defaultMaxPhotoBytes  = 10 << 20
	defaultTypingInterval = 4 * time.Second
)

// BotConfig tunes the insurance workflow.
type BotConfig struct {
	Price          int           `yaml:"price" envconfig:"BOT_PRICE"`
	MaxPhotoBytes  int64         `yaml:"max_photo_bytes" envconfig:"BOT_MAX_PHOTO_BYTES"`
	TypingInterval time.Duration `yaml:"typing_interval" envconfig:"BOT_TYPING_INTERVAL"`
}

// MindeeConfig configures the Mindee OCR client.
type MindeeConfig struct {
	APIKey       string        `yaml:"api_key" envconfig:"MINDEE_API_KEY"`
	BaseURL      string        `yaml:"base_url" envconfig:"MINDEE_BASE_URL"`
	Account      string        `yaml:"account"`
	Endpoint     string        `yaml:"endpoint"`
	Version      string        `yaml:"version"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

// GeminiConfig configures a Gemini model. System is only used for generation.
type GeminiConfig struct {
	APIKey string `yaml:"api_key" envconfig:"GEMINI_API_KEY"`
	Model  string `yaml:"model"`
	System string `yaml:"system"`
}

// OllamaConfig configures the Ollama generator.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url" envconfig:"OLLAMA_BASE_URL"`
	Model   string `yaml:"model" envconfig:"OLLAMA_MODEL"`
	System  string `yaml:"system"`
}

// OCRConfig selects and configures the document extractor.
type OCRConfig struct {
	Provider string       `yaml:"provider" envconfig:"OCR_PROVIDER"`
	Mindee   MindeeConfig `yaml:"mindee"`
	Gemini   GeminiConfig `yaml:"gemini"`
}

// GenerationConfig selects and configures the policy generator.
type GenerationConfig struct {
	Provider string       `yaml:"provider" envconfig:"GENERATION_PROVIDER"`
	Ollama   OllamaConfig `yaml:"ollama"`
	Gemini   GeminiConfig `yaml:"gemini"`
}

// MetricsConfig controls the Prometheus endpoint. An empty Listen disables it.
type MetricsConfig struct {
	Listen    string `yaml:"listen" envconfig:"METRICS_LISTEN"`
	Namespace string `yaml:"namespace"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Bot        BotConfig        `yaml:"bot"`
	OCR        OCRConfig        `yaml:"ocr"`
	Generation GenerationConfig `yaml:"generation"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// CoreConfig exposes the embedded core settings.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates cfg and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	if cfg.Bot.Price < 0 {
		return fmt.Errorf("bot.price must be >= 0")
	}
	if cfg.Bot.Price == 0 {
		cfg.Bot.Price = defaultPrice
	}
	if cfg.Bot.MaxPhotoBytes <= 0 {
		cfg.Bot.MaxPhotoBytes = defaultMaxPhotoBytes
	}
	if cfg.Bot.TypingInterval <= 0 {
		cfg.Bot.TypingInterval = defaultTypingInterval
	}

	cfg.OCR.Provider = strings.ToLower(strings.TrimSpace(cfg.OCR.Provider))
	switch cfg.OCR.Provider {
	case "", ProviderMindee:
		cfg.OCR.Provider = ProviderMindee
		if strings.TrimSpace(cfg.OCR.Mindee.APIKey) == "" {
			return fmt.Errorf("ocr.mindee.api_key is required when ocr.provider is 'mindee'")
		}
		if cfg.OCR.Mindee.PollInterval < 0 || cfg.OCR.Mindee.MaxPolls < 0 {
			return fmt.Errorf("ocr.mindee.poll_interval and ocr.mindee.max_polls must be >= 0")
		}
	case ProviderGemini:
		if strings.TrimSpace(cfg.OCR.Gemini.APIKey) == "" {
			return fmt.Errorf("ocr.gemini.api_key is required when ocr.provider is 'gemini'")
		}
	default:
		return fmt.Errorf("invalid ocr.provider %q; allowed: mindee, gemini", cfg.OCR.Provider)
	}

	cfg.Generation.Provider = strings.ToLower(strings.TrimSpace(cfg.Generation.Provider))
	switch cfg.Generation.Provider {
	case "", ProviderOllama:
		cfg.Generation.Provider = ProviderOllama
	case ProviderGemini:
		if strings.TrimSpace(cfg.Generation.Gemini.APIKey) == "" {
			return fmt.Errorf("generation.gemini.api_key is required when generation.provider is 'gemini'")
		}
	default:
		return fmt.Errorf("invalid generation.provider %q; allowed: ollama, gemini", cfg.Generation.Provider)
	}

	cfg.Metrics.Listen = strings.TrimSpace(cfg.Metrics.Listen)
	return nil
}
