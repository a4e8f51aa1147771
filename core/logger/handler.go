package logger

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// outcomes is the closed set of outcome values; anything else is dropped.
// Status values are only lowercased.
var outcomes = map[string]bool{
	"ok":           true,
	"fail":         true,
	"failed":       true,
	"error":        true,
	"cancelled":    true,
	"rate_limited": true,
}

// newHandler writes JSON lines, or key=value lines for format "kv" or "text".
func newHandler(w io.Writer, format string, lvl slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: lvl, ReplaceAttr: rewriteAttr}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "kv", "text":
		return metaHandler{slog.NewTextHandler(w, opts)}
	default:
		return metaHandler{slog.NewJSONHandler(w, opts)}
	}
}

// rewriteAttr maps slog's built-in keys onto ts/event, reports durations
// in whole milliseconds and drops empty strings.
func rewriteAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch a.Key {
		case slog.TimeKey:
			return slog.String("ts", a.Value.Time().UTC().Format(tsLayout))
		case slog.MessageKey:
			return slog.String("event", a.Value.String())
		case slog.LevelKey:
			return a
		}
	}
	switch a.Value.Kind() {
	case slog.KindDuration:
		key := a.Key
		if !strings.HasSuffix(key, "_ms") {
			key += "_ms"
		}
		return slog.Int64(key, RoundMS(a.Value.Duration()).Milliseconds())
	case slog.KindString:
		v := strings.TrimSpace(a.Value.String())
		switch {
		case v == "":
			return slog.Attr{}
		case a.Key == "status":
			return slog.String(a.Key, strings.ToLower(v))
		case a.Key == "outcome" && !outcomes[strings.ToLower(v)]:
			return slog.Attr{}
		case a.Key == "outcome":
			return slog.String(a.Key, strings.ToLower(v))
		}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, err.Error())
		}
	}
	return a
}

// metaHandler appends the Meta carried by ctx to every record.
type metaHandler struct {
	slog.Handler
}

func (h metaHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := MetaFrom(ctx).attrs(); len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h metaHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return metaHandler{h.Handler.WithAttrs(attrs)}
}

func (h metaHandler) WithGroup(name string) slog.Handler {
	return metaHandler{h.Handler.WithGroup(name)}
}
