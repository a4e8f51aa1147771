package callbacks

import tele "gopkg.in/telebot.v4"

const answeredKey = "cb_answered"

// Answer acknowledges the current callback at most once per update.
func Answer(c tele.Context, resp ...*tele.CallbackResponse) error {
	if c.Callback() == nil || Answered(c) {
		return nil
	}
	c.Set(answeredKey, true)
	return c.Respond(resp...)
}

// Answered reports whether Answer already ran for this update.
func Answered(c tele.Context) bool {
	v, _ := c.Get(answeredKey).(bool)
	return v
}
