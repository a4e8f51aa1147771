package policy

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/metrics"
)

type instrumented struct {
	next     Generator
	provider string
	model    string
	metrics  *metrics.Metrics
}

// Instrument wraps next with metrics and start/done log lines that share an op_id.
func Instrument(next Generator, provider, model string, m *metrics.Metrics) Generator {
	return &instrumented{next: next, provider: provider, model: model, metrics: m}
}

func (i *instrumented) GeneratePolicy(ctx context.Context, req Request) (string, error) {
	ctx = logger.WithOpID(ctx, uuid.NewString())
	start := time.Now()
	logger.Info(ctx, logger.ComponentPolicy, "generation.start",
		slog.String("status", "ok"),
		slog.String("provider", i.provider),
		slog.String("model", i.model),
		slog.Int("price", req.Price),
	)

	text, err := i.next.GeneratePolicy(ctx, req)
	took := time.Since(start)

	outcome := "ok"
	switch {
	case errors.Is(err, ErrGenerationFailed):
		outcome = "failed"
	case err != nil:
		outcome = "error"
	}
	i.metrics.ObserveGeneration(i.provider, outcome, took)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("provider", i.provider),
		slog.String("outcome", outcome),
		slog.Int("chars", len(text)),
		slog.Duration("duration", took),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, logger.ComponentPolicy, "generation.done", attrs...)
		return "", err
	}
	logger.Info(ctx, logger.ComponentPolicy, "generation.done", attrs...)
	return text, nil
}
