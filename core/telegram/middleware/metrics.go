package middleware

import (
	"sync/atomic"

	"github.com/m3rciful/insurebot/core/metrics"

	tele "gopkg.in/telebot.v4"
)

const countersKey = "out_counters"

// Counters tally what a handler sent back. Sends may complete on the
// dispatcher after the handler returns, so the fields are atomic.
type Counters struct {
	messages atomic.Int32
	keyboard atomic.Bool
}

// Messages is the number of successful sends so far.
func (o *Counters) Messages() int { return int(o.messages.Load()) }

// Keyboard reports whether any send carried reply markup.
func (o *Counters) Keyboard() bool { return o.keyboard.Load() }

// CountersOf returns the counters installed by Count, or nil.
func CountersOf(c tele.Context) *Counters {
	o, _ := c.Get(countersKey).(*Counters)
	return o
}

// counting observes sends made through the handler's context.
type counting struct {
	tele.Context
	out *Counters
}

func (m counting) note(err error, opts []any) error {
	if err != nil {
		return err
	}
	m.out.messages.Add(1)
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			if v != nil && v.ReplyMarkup != nil {
				m.out.keyboard.Store(true)
			}
		case *tele.ReplyMarkup:
			if v != nil {
				m.out.keyboard.Store(true)
			}
		}
	}
	return nil
}

func (m counting) Send(what any, opts ...any) error {
	return m.note(m.Context.Send(what, opts...), opts)
}

func (m counting) Reply(what any, opts ...any) error {
	return m.note(m.Context.Reply(what, opts...), opts)
}

func (m counting) Edit(what any, opts ...any) error {
	return m.note(m.Context.Edit(what, opts...), opts)
}

// UpdateKind names the update class used for metric labels and logs.
func UpdateKind(upd tele.Update) string {
	msg := upd.Message
	switch {
	case upd.Callback != nil:
		return "callback"
	case msg == nil:
		return "other"
	case msg.Photo != nil:
		return "photo"
	case msg.Document != nil:
		return "document"
	case len(msg.Text) > 1 && msg.Text[0] == '/':
		return "command"
	case msg.Text != "":
		return "text"
	}
	return "other"
}

// Count records the update in the updates_total metric and wraps the
// context so the handler summary can report what was sent.
func Count(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		metrics.Default().ObserveUpdate(UpdateKind(c.Update()))
		out := &Counters{}
		c.Set(countersKey, out)
		return next(counting{Context: c, out: out})
	}
}
