package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Parse returns the button key and payload. telebot fills Unique for data
// it could split; otherwise Data holds "\f<key>|<payload>" or a bare key.
func Parse(cb *tele.Callback) (key, payload string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	key, payload, _ = strings.Cut(strings.TrimPrefix(cb.Data, "\f"), "|")
	return strings.TrimSpace(key), payload
}
