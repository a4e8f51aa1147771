package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/metrics"
	"github.com/m3rciful/insurebot/internal/session"
)

type instrumented struct {
	next     Extractor
	provider string
	metrics  *metrics.Metrics
}

// Instrument wraps next with duration metrics and an extract.done log line.
func Instrument(next Extractor, provider string, m *metrics.Metrics) Extractor {
	return &instrumented{next: next, provider: provider, metrics: m}
}

func (i *instrumented) ExtractPassport(ctx context.Context, image []byte) (session.Passport, error) {
	start := time.Now()
	p, err := i.next.ExtractPassport(ctx, image)
	i.observe(ctx, DocumentPassport, len(image), start, err)
	return p, err
}

func (i *instrumented) ExtractVehicle(ctx context.Context, image []byte) (session.Vehicle, error) {
	start := time.Now()
	v, err := i.next.ExtractVehicle(ctx, image)
	i.observe(ctx, DocumentVehicle, len(image), start, err)
	return v, err
}

func (i *instrumented) observe(ctx context.Context, doc Document, size int, start time.Time, err error) {
	took := time.Since(start)
	outcome := Outcome(err)
	i.metrics.ObserveExtraction(doc.String(), outcome, took)

	attrs := []slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.String("document", doc.String()),
		slog.String("provider", i.provider),
		slog.String("outcome", outcome),
		slog.Int("bytes", size),
		slog.Duration("duration", took),
	}
	if outcome == "error" {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, logger.ComponentExtract, "extract.done", attrs...)
		return
	}
	logger.Info(ctx, logger.ComponentExtract, "extract.done", attrs...)
}
