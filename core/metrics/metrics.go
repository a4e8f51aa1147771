// Package metrics exports bot counters and latencies to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const defaultNamespace = "insurebot"

// Metrics groups the collectors used by the Telegram runtime and the
// insurance workflow. A nil *Metrics is valid and records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	updates            *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	extractions        *prometheus.CounterVec
	extractionDuration *prometheus.HistogramVec
	generations        *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	sendFailures       *prometheus.CounterVec
	apiRetries         *prometheus.CounterVec
	namespace          string
	registerer         prometheus.Registerer
}

// New registers all collectors on reg. When reg is nil a private registry
// with Go and process collectors is created and exposed through Gatherer.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		private := prometheus.NewRegistry()
		private.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		reg = private
		gatherer = private
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{gatherer: gatherer, namespace: namespace, registerer: reg}
	var err error
	if m.updates, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Telegram updates received, by kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if m.handlerDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Time spent in update handlers.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"handler", "outcome"})); err != nil {
		return nil, err
	}
	if m.extractions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractions_total",
		Help:      "Document extraction attempts, by document and outcome.",
	}, []string{"document", "outcome"})); err != nil {
		return nil, err
	}
	if m.extractionDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_duration_seconds",
		Help:      "Latency of OCR calls.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
	}, []string{"document"})); err != nil {
		return nil, err
	}
	if m.generations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generations_total",
		Help:      "Policy generation attempts, by provider and outcome.",
	}, []string{"provider", "outcome"})); err != nil {
		return nil, err
	}
	if m.generationDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "generation_duration_seconds",
		Help:      "Latency of policy generation calls.",
		Buckets:   []float64{1, 2, 5, 10, 20, 40, 80, 160},
	}, []string{"provider"})); err != nil {
		return nil, err
	}
	if m.sendFailures, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_failures_total",
		Help:      "Outbound Telegram calls that failed after retries, by error kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if m.apiRetries, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_retries_total",
		Help:      "Bot API requests repeated after a transient error, by error kind.",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	return m, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("metrics: register collector: %w", err)
	}
	return c, nil
}

// Gatherer exposes the registry backing these metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.DefaultGatherer
	}
	return m.gatherer
}

// RegisterGauge exports fn as a gauge, used for values owned elsewhere such as the session count.
func (m *Metrics) RegisterGauge(name, help string, fn func() float64) error {
	if m == nil || fn == nil {
		return nil
	}
	_, err := register(m.registerer, prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, fn))
	return err
}

// ObserveUpdate counts one inbound update of the given kind.
func (m *Metrics) ObserveUpdate(kind string) {
	if m == nil {
		return
	}
	m.updates.WithLabelValues(kind).Inc()
}

// ObserveHandler records a handler run.
func (m *Metrics) ObserveHandler(handler, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.handlerDuration.WithLabelValues(handler, outcome).Observe(d.Seconds())
}

// ObserveExtraction records one OCR call.
func (m *Metrics) ObserveExtraction(document, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(document, outcome).Inc()
	m.extractionDuration.WithLabelValues(document).Observe(d.Seconds())
}

// ObserveGeneration records one policy generation call.
func (m *Metrics) ObserveGeneration(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(provider, outcome).Inc()
	m.generationDuration.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveSendFailure counts an outbound call that exhausted its retries.
func (m *Metrics) ObserveSendFailure(kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	m.sendFailures.WithLabelValues(kind).Inc()
}

// ObserveAPIRetry counts a Bot API request the HTTP transport is about to repeat.
func (m *Metrics) ObserveAPIRetry(kind string) {
	if m == nil {
		return
	}
	m.apiRetries.WithLabelValues(kind).Inc()
}

var current atomic.Pointer[Metrics]

// SetDefault installs m as the process-wide collector used by middleware.
func SetDefault(m *Metrics) {
	current.Store(m)
}

// Default returns the process-wide collector, or nil when metrics are disabled.
func Default() *Metrics {
	return current.Load()
}
