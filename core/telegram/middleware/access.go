package middleware

import (
	"log/slog"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// AdminOnly passes updates from adminID to next and hands everyone else to
// reject, which may be nil. A zero adminID rejects every caller.
func AdminOnly(adminID int64, reject tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if u := c.Sender(); adminID != 0 && u != nil && u.ID == adminID {
				return next(c)
			}
			logger.Warn(helpers.Context(c), logger.ComponentTG, "admin.reject",
				slog.String("status", "denied"),
				slog.String("text", logger.SanitizeLimit(c.Text(), 64)),
			)
			if reject == nil {
				return nil
			}
			return reject(c)
		}
	}
}
