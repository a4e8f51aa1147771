package bootstrap

import (
	"context"
	"fmt"

	coreconfig "github.com/m3rciful/insurebot/core/config"
	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/metrics"
)

// Options control the generic bootstrap pipeline shared between bots.
type Options struct {
	Config *coreconfig.Config

	// MetricsNamespace prefixes every exported series.
	MetricsNamespace string
	// MetricsListen starts the /metrics endpoint when non-empty.
	MetricsListen string

	LoggerInit   func(coreconfig.LoggingConfig) error
	MetricsInit  func(namespace string) (*metrics.Metrics, error)
	MetricsServe func(listen string, m *metrics.Metrics) (*metrics.Server, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Metrics       *metrics.Metrics
	MetricsServer *metrics.Server
}

// Run initializes the logger and the metrics registry, and starts the
// metrics endpoint when configured.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.Init
	}
	if err := loggerInit(opts.Config.Logging); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	metricsInit := opts.MetricsInit
	if metricsInit == nil {
		metricsInit = func(ns string) (*metrics.Metrics, error) { return metrics.New(ns, nil) }
	}
	m, err := metricsInit(opts.MetricsNamespace)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: metrics init failed: %w", err)
	}
	metrics.SetDefault(m)

	res := &Result{Metrics: m}
	if opts.MetricsListen == "" {
		return res, nil
	}

	serve := opts.MetricsServe
	if serve == nil {
		serve = func(listen string, m *metrics.Metrics) (*metrics.Server, error) {
			return metrics.Start(listen, m.Gatherer())
		}
	}
	srv, err := serve(opts.MetricsListen, m)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: metrics listen failed: %w", err)
	}
	res.MetricsServer = srv
	return res, nil
}

// Close stops the metrics endpoint if it was started.
func (r *Result) Close(ctx context.Context) error {
	if r == nil || r.MetricsServer == nil {
		return nil
	}
	return r.MetricsServer.Shutdown(ctx)
}
