package middleware

import (
	"log/slog"
	"sync"
	"time"

	coreconfig "github.com/m3rciful/insurebot/core/config"
	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimit drops updates a user sends within cfg.Interval of their last
// accepted one. Dropped updates go to onLimited, which may be nil. Update
// classes listed in cfg.ExcludeUpdates are never limited.
func RateLimit(cfg coreconfig.RateLimitConfig, onLimited tele.HandlerFunc) tele.MiddlewareFunc {
	interval := cfg.Interval()
	var (
		mu   sync.Mutex
		last = make(map[int64]time.Time)
	)
	accept := func(userID int64, now time.Time) bool {
		mu.Lock()
		defer mu.Unlock()
		if t, ok := last[userID]; ok && now.Sub(t) < interval {
			return false
		}
		last[userID] = now
		return true
	}

	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			u := c.Sender()
			if interval <= 0 || u == nil {
				return next(c)
			}
			class := coreconfig.UpdateMessage
			if c.Callback() != nil {
				class = coreconfig.UpdateCallback
			}
			if cfg.Excludes(class) || accept(u.ID, time.Now()) {
				return next(c)
			}

			logger.Warn(helpers.Context(c), logger.ComponentTG, "update.limited",
				slog.String("outcome", "rate_limited"),
				slog.String("class", class),
			)
			if onLimited == nil {
				return nil
			}
			return onLimited(c)
		}
	}
}
