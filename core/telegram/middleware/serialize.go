package middleware

import (
	"log/slog"
	"time"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ChatLocker hands out per-chat critical sections.
type ChatLocker interface {
	Lock(chatID int64) (unlock func())
}

// lockWaitLogged is how long a handler may wait for its chat before the
// wait is logged.
const lockWaitLogged = time.Second

// SerializeChat runs at most one downstream handler per chat. The chat is
// resolved with helpers.ChatID, the same key handlers use for sessions.
func SerializeChat(locker ChatLocker) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chatID, ok := helpers.ChatID(c)
			if locker == nil || !ok {
				return next(c)
			}
			start := time.Now()
			unlock := locker.Lock(chatID)
			defer unlock()
			if waited := time.Since(start); waited > lockWaitLogged {
				logger.Debug(helpers.Context(c), logger.ComponentTG, "chat.lock.wait",
					slog.Duration("wait", waited),
				)
			}
			return next(c)
		}
	}
}
