package middleware

import (
	"log/slog"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/callbacks"
	"github.com/m3rciful/insurebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Trace attaches the logging context to the update and records its
// arrival. Photos are logged by size only.
func Trace(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := helpers.Context(c)
		upd := c.Update()
		attrs := []slog.Attr{slog.String("kind", UpdateKind(upd))}
		switch {
		case upd.Callback != nil:
			key, payload := callbacks.Parse(upd.Callback)
			attrs = append(attrs,
				slog.String("cb_key", logger.SanitizeLimit(key, 64)),
				slog.String("payload", logger.SanitizeLimit(payload, 128)),
			)
		case upd.Message != nil && upd.Message.Photo != nil:
			attrs = append(attrs, slog.Int64("bytes", int64(upd.Message.Photo.FileSize)))
		case upd.Message != nil:
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(upd.Message.Text, 128)))
		}
		if u := c.Sender(); u != nil && u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
		logger.Debug(ctx, logger.ComponentTG, "update.received", attrs...)
		return next(c)
	}
}
