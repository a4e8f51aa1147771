package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUpdate("message")
		m.ObserveHandler("start", "ok", time.Millisecond)
		m.ObserveExtraction("passport", "ok", time.Second)
		m.ObserveGeneration("ollama", "ok", time.Second)
		m.ObserveSendFailure("")
		m.ObserveAPIRetry("timeout")
		require.NoError(t, m.RegisterGauge("sessions", "help", func() float64 { return 1 }))
	})
}

func TestObserveCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New("test", reg)
	require.NoError(t, err)

	m.ObserveExtraction("passport", "failed", 200*time.Millisecond)
	m.ObserveExtraction("passport", "failed", 300*time.Millisecond)
	m.ObserveGeneration("ollama", "ok", 3*time.Second)
	m.ObserveSendFailure("")
	m.ObserveAPIRetry("dial")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.extractions.WithLabelValues("passport", "failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations.WithLabelValues("ollama", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sendFailures.WithLabelValues("unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRetries.WithLabelValues("dial")))
}

func TestNewReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := New("test", reg)
	require.NoError(t, err)
	second, err := New("test", reg)
	require.NoError(t, err)

	first.ObserveUpdate("photo")
	second.ObserveUpdate("photo")
	assert.Equal(t, 2.0, testutil.ToFloat64(first.updates.WithLabelValues("photo")))
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	m, err := New("test", nil)
	require.NoError(t, err)
	require.NoError(t, m.RegisterGauge("sessions", "Tracked chats.", func() float64 { return 3 }))
	m.ObserveUpdate("callback")

	srv := httptest.NewServer(Handler(m.Gatherer()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	text := string(body)
	assert.True(t, strings.Contains(text, `test_updates_total{kind="callback"} 1`), text)
	assert.True(t, strings.Contains(text, "test_sessions 3"), text)
}

func TestStartAndShutdown(t *testing.T) {
	s, err := Start("127.0.0.1:0", prometheus.NewRegistry())
	require.NoError(t, err)
	require.NotEmpty(t, s.Addr())

	resp, err := http.Get("http://" + s.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
