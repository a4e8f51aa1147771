package telegram

import (
	coreconfig "github.com/m3rciful/insurebot/core/config"
	"github.com/m3rciful/insurebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MiddlewareOptions are the bot-specific hooks of the global chain.
type MiddlewareOptions struct {
	// OnLimited answers updates dropped by the rate limiter.
	OnLimited tele.HandlerFunc
	// Locker, when set, serialises handlers per chat.
	Locker middleware.ChatLocker
}

// DefaultMiddlewares returns the global chain in the order it must run:
// panics are recovered first, every update is traced and counted, and
// only then limited and serialised.
func DefaultMiddlewares(cfg *coreconfig.Config, opts MiddlewareOptions) []tele.MiddlewareFunc {
	chain := []tele.MiddlewareFunc{
		middleware.Recover,
		middleware.Trace,
		middleware.Count,
	}
	if cfg != nil && cfg.RateLimit.Interval() > 0 {
		chain = append(chain, middleware.RateLimit(cfg.RateLimit, opts.OnLimited))
	}
	if opts.Locker != nil {
		chain = append(chain, middleware.SerializeChat(opts.Locker))
	}
	return chain
}
