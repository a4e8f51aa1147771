package helpers

import (
	"context"

	"github.com/m3rciful/insurebot/core/logger"

	tele "gopkg.in/telebot.v4"
)

const ctxKey = "log_ctx"

// ChatID resolves the chat an update belongs to: the chat of the message,
// or of the message a button hangs under, and otherwise the sender's
// private chat. Middleware and handlers must agree on this key.
func ChatID(c tele.Context) (int64, bool) {
	if chat := c.Chat(); chat != nil {
		return chat.ID, true
	}
	if user := c.Sender(); user != nil {
		return user.ID, true
	}
	return 0, false
}

// Context returns the logging context of the current update. It is built
// on first use and cached on c.
func Context(c tele.Context) context.Context {
	if ctx, ok := c.Get(ctxKey).(context.Context); ok {
		return ctx
	}
	m := logger.Meta{UpdateID: c.Update().ID}
	m.ChatID, _ = ChatID(c)
	if user := c.Sender(); user != nil {
		m.UserID = user.ID
	}
	m.RID = logger.RID(m.UpdateID, m.ChatID, m.UserID)
	ctx := logger.WithMeta(context.Background(), m)
	c.Set(ctxKey, ctx)
	return ctx
}

// WithHandler records the serving handler in the update's logging context.
func WithHandler(c tele.Context, name string) context.Context {
	ctx := logger.WithHandler(Context(c), name)
	c.Set(ctxKey, ctx)
	return ctx
}
