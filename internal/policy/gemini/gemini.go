// Package gemini generates policy text with the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/m3rciful/insurebot/internal/policy"
)

const (
	providerName = "gemini"
	defaultModel = "gemini-1.5-flash"
)

// Engine implements policy.Generator.
type Engine struct {
	APIKey string
	Model  string
	System string
}

var _ policy.Generator = (*Engine)(nil)

// New returns an Engine; model falls back to a flash model.
func New(apiKey, model, system string) (*Engine, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini: GEMINI_API_KEY is empty")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultModel
	}
	return &Engine{APIKey: apiKey, Model: model, System: strings.TrimSpace(system)}, nil
}

// GeneratePolicy streams the completion and joins its text parts.
func (e *Engine) GeneratePolicy(ctx context.Context, req policy.Request) (string, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return "", fmt.Errorf("gemini: new client: %w", err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	if e.System != "" {
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(e.System)}}
	}

	it := m.GenerateContentStream(ctx, genai.Text(policy.BuildPrompt(req)))
	var builder strings.Builder
	for {
		resp, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &policy.GenerationError{Provider: providerName, Body: err.Error()}
		}
		appendText(&builder, resp)
	}
	return builder.String(), nil
}

func appendText(b *strings.Builder, resp *genai.GenerateContentResponse) {
	if resp == nil {
		return
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
}
