package mindee

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/insurebot/internal/extract"
	"github.com/m3rciful/insurebot/internal/session"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{APIKey: "secret", BaseURL: srv.URL, PollInterval: time.Millisecond, MaxPolls: 5})
	require.NoError(t, err)
	return c
}

func readUpload(t *testing.T, r *http.Request) []byte {
	t.Helper()
	assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
	f, _, err := r.FormFile("document")
	if !assert.NoError(t, err) {
		return nil
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	assert.NoError(t, err)
	return data
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestExtractPassport(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, passportPath, r.URL.Path)
		assert.Equal(t, []byte("jpeg"), readUpload(t, r))
		_, _ = io.WriteString(w, `{"document":{"inference":{"prediction":{
			"given_names":[{"value":"Jane"},{"value":"Mary"}],
			"surname":{"value":"Doe"}}}}}`)
	}))

	p, err := c.ExtractPassport(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, session.Passport{FirstName: "Jane", LastName: "Doe"}, p)
}

func TestExtractPassportMissingField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"document":{"inference":{"prediction":{"given_names":[],"surname":{"value":"Doe"}}}}}`)
	}))

	_, err := c.ExtractPassport(context.Background(), []byte("jpeg"))
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}

func TestExtractPassportAPIError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"api_request":{"error":"invalid token"}}`, http.StatusUnauthorized)
	}))

	_, err := c.ExtractPassport(context.Background(), []byte("jpeg"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "invalid token")
	assert.False(t, errors.Is(err, extract.ErrExtractionFailed))
}

func TestExtractVehiclePollsQueue(t *testing.T) {
	var polls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/predict_async", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		readUpload(t, r)
		writeJSON(w, map[string]any{"job": map[string]any{"id": "job-1", "status": "waiting"}})
	})
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/documents/queue/job-1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		if polls.Add(1) < 3 {
			writeJSON(w, map[string]any{"job": map[string]any{"id": "job-1", "status": "processing"}})
			return
		}
		_, _ = io.WriteString(w, `{"job":{"id":"job-1","status":"completed"},
			"document":{"id":"doc-1","inference":{"prediction":{
				"vehicle_make":{"value":"Toyota"},
				"vehicle_model":[{"value":"Corolla"},{"value":"Cross"}]}}}}`)
	})
	c := newTestClient(t, mux)

	v, err := c.ExtractVehicle(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, session.Vehicle{Make: "Toyota", Model: "Corolla Cross"}, v)
	assert.EqualValues(t, 3, polls.Load())
}

func TestExtractVehicleMissingModel(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/predict_async", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{"id": "j"}})
	})
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/documents/queue/j", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"job":{"status":"completed"},"document":{"inference":{"prediction":{
			"vehicle_make":{"value":"Toyota"},"vehicle_model":{"value":null}}}}}`)
	})
	c := newTestClient(t, mux)

	_, err := c.ExtractVehicle(context.Background(), []byte("jpeg"))
	assert.ErrorIs(t, err, extract.ErrExtractionFailed)
}

func TestExtractVehicleJobFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/predict_async", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{"id": "j"}})
	})
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/documents/queue/j", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"job":{"status":"failed","error":{"message":"bad image"}}}`)
	})
	c := newTestClient(t, mux)

	_, err := c.ExtractVehicle(context.Background(), []byte("jpeg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad image")
	assert.False(t, errors.Is(err, extract.ErrExtractionFailed))
}

func TestExtractVehicleGivesUpAfterMaxPolls(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/predict_async", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{"id": "j"}})
	})
	mux.HandleFunc("/v1/products/Bernkast/car_registration_license/v1/documents/queue/j", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"job": map[string]any{"status": "processing"}})
	})
	c := newTestClient(t, mux)

	_, err := c.ExtractVehicle(context.Background(), []byte("jpeg"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not ready after 5 polls")
}

func TestGeneratedPredictionValue(t *testing.T) {
	p := generatedPrediction{
		"single": json.RawMessage(`{"value":" Audi "}`),
		"list":   json.RawMessage(`[{"value":"A4"},{"value":null},{"value":"Avant"}]`),
		"broken": json.RawMessage(`42`),
	}
	assert.Equal(t, "Audi", p.value("single"))
	assert.Equal(t, "A4 Avant", p.value("list"))
	assert.Equal(t, "", p.value("broken"))
	assert.Equal(t, "", p.value("missing"))
}
