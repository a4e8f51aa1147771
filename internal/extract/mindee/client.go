// Package mindee reads passport and vehicle fields through the Mindee REST API.
package mindee

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/internal/extract"
	"github.com/m3rciful/insurebot/internal/session"
)

const (
	defaultBaseURL      = "https://api.mindee.net"
	defaultAccount      = "Bernkast"
	defaultEndpoint     = "car_registration_license"
	defaultVersion      = "1"
	defaultPollInterval = 1500 * time.Millisecond
	defaultMaxPolls     = 80
	defaultTimeout      = 60 * time.Second

	passportPath = "/v1/products/mindee/passport/v1/predict"
	maxErrorBody = 4 << 10
)

// Config configures the Mindee client.
type Config struct {
	APIKey  string
	BaseURL string
	// Account and Endpoint name the custom vehicle registration model.
	Account  string
	Endpoint string
	Version  string

	PollInterval time.Duration
	MaxPolls     int

	HTTPClient *http.Client
}

// APIError is returned for non-2xx answers.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mindee %d: %s", e.Status, e.Body)
}

// Client implements extract.Extractor.
type Client struct {
	cfg  Config
	http *http.Client
}

var _ extract.Extractor = (*Client)(nil)

// New validates cfg and fills defaults.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("mindee: api key is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Account == "" {
		cfg.Account = defaultAccount
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = defaultMaxPolls
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{cfg: cfg, http: hc}, nil
}

// ExtractPassport runs the synchronous passport model.
func (c *Client) ExtractPassport(ctx context.Context, image []byte) (session.Passport, error) {
	var resp predictResponse[passportPrediction]
	if err := c.upload(ctx, c.cfg.BaseURL+passportPath, image, &resp); err != nil {
		return session.Passport{}, err
	}
	pred := resp.Document.Inference.Prediction
	first := ""
	if len(pred.GivenNames) > 0 {
		first = pred.GivenNames[0].String()
	}
	return extract.Passport(first, pred.Surname.String())
}

// ExtractVehicle enqueues the custom vehicle model and polls until the
// document is ready.
func (c *Client) ExtractVehicle(ctx context.Context, image []byte) (session.Vehicle, error) {
	var queued jobResponse
	if err := c.upload(ctx, c.productURL()+"/predict_async", image, &queued); err != nil {
		return session.Vehicle{}, err
	}
	if queued.Job.ID == "" {
		return session.Vehicle{}, errors.New("mindee: enqueue returned no job id")
	}

	doc, err := c.poll(ctx, queued.Job.ID)
	if err != nil {
		return session.Vehicle{}, err
	}
	fields := doc.Inference.Prediction
	return extract.Vehicle(fields.value("vehicle_make"), fields.value("vehicle_model"))
}

func (c *Client) productURL() string {
	return fmt.Sprintf("%s/v1/products/%s/%s/v%s", c.cfg.BaseURL, c.cfg.Account, c.cfg.Endpoint, c.cfg.Version)
}

func (c *Client) poll(ctx context.Context, jobID string) (*document[generatedPrediction], error) {
	url := c.productURL() + "/documents/queue/" + jobID
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for attempt := 1; attempt <= c.cfg.MaxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		var resp jobResponse
		if err := c.do(ctx, http.MethodGet, url, nil, "", &resp); err != nil {
			return nil, err
		}
		switch {
		case resp.Document != nil:
			logger.Debug(ctx, logger.ComponentExtract, "mindee.job.done",
				slog.String("status", "ok"),
				slog.Int("polls", attempt),
			)
			return resp.Document, nil
		case strings.EqualFold(resp.Job.Status, "failed"):
			return nil, fmt.Errorf("mindee: job %s failed: %s", jobID, resp.Job.Error.Message)
		}
		logger.Debug(ctx, logger.ComponentExtract, "mindee.job.poll",
			slog.Int("attempt", attempt),
			slog.String("job_status", resp.Job.Status),
		)
	}
	return nil, fmt.Errorf("mindee: job %s not ready after %d polls", jobID, c.cfg.MaxPolls)
}

func (c *Client) upload(ctx context.Context, url string, image []byte, out any) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("document", "document.jpg")
	if err != nil {
		return fmt.Errorf("mindee: build form: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return fmt.Errorf("mindee: build form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mindee: build form: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, &body, w.FormDataContentType(), out)
}

func (c *Client) do(ctx context.Context, method, url string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("mindee: new request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("mindee: %s %s: %w", method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("mindee: decode response: %w", err)
	}
	return nil
}
