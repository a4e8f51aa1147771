// Package router turns registry entries and bot handlers into telebot
// routes that share one completion log line and handler metrics.
package router

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/metrics"
	"github.com/m3rciful/insurebot/core/telegram/helpers"
	"github.com/m3rciful/insurebot/core/telegram/middleware"
	"github.com/m3rciful/insurebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

// serve runs h as the named handler and logs one handler.done line.
// A nil h is recorded as skipped.
func serve(c tele.Context, name string, h tele.HandlerFunc, extra ...slog.Attr) error {
	start := time.Now()
	ctx := helpers.WithHandler(c, name)

	var err error
	outcome := "skip"
	if h != nil {
		outcome = "ok"
		if err = h(c); err != nil {
			outcome = "fail"
		}
	}
	took := time.Since(start)
	metrics.Default().ObserveHandler(name, outcome, took)

	attrs := append([]slog.Attr{
		slog.String("status", outcome),
		slog.Duration("duration", logger.RoundMS(took)),
	}, extra...)
	if out := middleware.CountersOf(c); out != nil {
		attrs = append(attrs, slog.Int("messages", out.Messages()), slog.Bool("kb", out.Keyboard()))
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("outcome", "error"),
			slog.String("err_code", errorCode(err)),
			slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
		)
		logger.Error(ctx, logger.ComponentTG, "handler.done", attrs...)
		return err
	}
	logger.Info(ctx, logger.ComponentTG, "handler.done", attrs...)
	return nil
}

// handlerName turns a command or callback key into a metric-safe label.
func handlerName(key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		return "unknown"
	}
	return strings.ReplaceAll(key, " ", "_")
}

// errorCode prefers a Code() the error carries, then the network class of
// a Bot API failure.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	if kind := netutil.Classify(err); kind != netutil.KindUnknown {
		return strings.ToUpper(kind)
	}
	return "INTERNAL"
}
