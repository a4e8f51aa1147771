// Package helpers holds the per-update plumbing shared by handlers: the
// logging context, chat resolution and outbound sends.
package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes sends through d; nil makes them synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// deliver queues fn on the dispatcher, or runs it inline when no
// dispatcher is installed or its queue cannot take the call.
func deliver(c tele.Context, name string, fn func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return fn()
	}
	ctx := Context(c)
	err := d.Submit(ctx, name, fn)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, logger.ComponentSender, "send.inline",
			slog.String("call", name),
			slog.String("reason", err.Error()),
		)
		return fn()
	}
	return err
}

// SendHTML sends text in HTML parse mode with an optional keyboard.
func SendHTML(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeHTML}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return deliver(c, "sendMessage", func() error {
		return c.Send(text, opts)
	})
}

// ClearInlineKeyboard removes the keyboard of the message whose button was
// pressed so it cannot be pressed twice.
func ClearInlineKeyboard(c tele.Context) error {
	cb := c.Callback()
	if cb == nil || cb.Message == nil {
		return nil
	}
	msg := cb.Message
	return deliver(c, "editMessageReplyMarkup", func() error {
		_, err := c.Bot().EditReplyMarkup(msg, nil)
		return err
	})
}
