package app

import (
	"github.com/m3rciful/insurebot/core/metrics"
	"github.com/m3rciful/insurebot/internal/config"
	"github.com/m3rciful/insurebot/internal/extract"
	extractgemini "github.com/m3rciful/insurebot/internal/extract/gemini"
	"github.com/m3rciful/insurebot/internal/extract/mindee"
	"github.com/m3rciful/insurebot/internal/policy"
	policygemini "github.com/m3rciful/insurebot/internal/policy/gemini"
	"github.com/m3rciful/insurebot/internal/policy/ollama"
)

func newExtractor(cfg config.OCRConfig, m *metrics.Metrics) (extract.Extractor, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		e, err := extractgemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return extract.Instrument(e, config.ProviderGemini, m), nil
	default:
		c, err := mindee.New(mindee.Config{
			APIKey:       cfg.Mindee.APIKey,
			BaseURL:      cfg.Mindee.BaseURL,
			Account:      cfg.Mindee.Account,
			Endpoint:     cfg.Mindee.Endpoint,
			Version:      cfg.Mindee.Version,
			PollInterval: cfg.Mindee.PollInterval,
			MaxPolls:     cfg.Mindee.MaxPolls,
		})
		if err != nil {
			return nil, err
		}
		return extract.Instrument(c, config.ProviderMindee, m), nil
	}
}

func newGenerator(cfg config.GenerationConfig, m *metrics.Metrics) (policy.Generator, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		e, err := policygemini.New(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.System)
		if err != nil {
			return nil, err
		}
		return policy.Instrument(e, config.ProviderGemini, e.Model, m), nil
	default:
		c := ollama.New(ollama.Config{
			BaseURL: cfg.Ollama.BaseURL,
			Model:   cfg.Ollama.Model,
			System:  cfg.Ollama.System,
		})
		return policy.Instrument(c, config.ProviderOllama, c.Model(), m), nil
	}
}
