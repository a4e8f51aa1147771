// Package ollama generates policy text with a local Ollama server.
package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/insurebot/internal/policy"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
	defaultModel   = "llama3"
	defaultTimeout = 5 * time.Minute
	// maxErrorBody caps how much of a failed response is kept for the error.
	maxErrorBody = 4 << 10
)

// Config configures the Ollama client.
type Config struct {
	BaseURL string
	Model   string
	// System is an optional system prompt.
	System     string
	HTTPClient *http.Client
}

// Client implements policy.Generator with the streaming /api/generate endpoint.
type Client struct {
	baseURL    string
	model      string
	system     string
	httpClient *http.Client
}

var _ policy.Generator = (*Client)(nil)

// New fills defaults for empty fields.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/api")
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, model: model, system: cfg.System, httpClient: hc}
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.model }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	System string `json:"system,omitempty"`
	Stream bool   `json:"stream"`
}

type generateChunk struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

// GeneratePolicy streams the completion and concatenates the response chunks.
func (c *Client) GeneratePolicy(ctx context.Context, req policy.Request) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: policy.BuildPrompt(req),
		System: c.system,
		Stream: true,
	})
	if err != nil {
		return "", fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		text := strings.TrimSpace(string(raw))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return "", &policy.GenerationError{Provider: providerName, Status: resp.StatusCode, Body: text}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	var builder strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var chunk generateChunk
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			return "", fmt.Errorf("decode ollama stream chunk: %w", err)
		}
		if chunk.Error != "" {
			return "", &policy.GenerationError{Provider: providerName, Body: chunk.Error}
		}
		builder.WriteString(chunk.Response)
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read ollama stream: %w", err)
	}
	return builder.String(), nil
}
