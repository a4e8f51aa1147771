// Package keyboard builds inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is an inline button whose presses arrive under Key.
type Button struct {
	Text    string
	Key     string
	Payload string
}

// Column lays the buttons out one per row.
func Column(buttons ...Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	rows := make([]tele.Row, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, m.Row(m.Data(b.Text, b.Key, b.Payload)))
	}
	m.Inline(rows...)
	return m
}
