package flow

import "strings"

// Command is a parsed chat command.
type Command int

const (
	CommandUnknown Command = iota
	CommandStart
	CommandMenu
	CommandSend
	CommandRestart
)

var commandNames = map[string]Command{
	"/start":   CommandStart,
	"/menu":    CommandMenu,
	"/send":    CommandSend,
	"/restart": CommandRestart,
}

// ParseCommand maps the first word of text to a Command. A "@botname"
// suffix is ignored and matching is case-insensitive.
func ParseCommand(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return CommandUnknown
	}
	word := strings.ToLower(fields[0])
	if i := strings.IndexByte(word, '@'); i > 0 {
		word = word[:i]
	}
	if cmd, ok := commandNames[word]; ok {
		return cmd
	}
	return CommandUnknown
}

func (c Command) String() string {
	for name, cmd := range commandNames {
		if cmd == c {
			return name
		}
	}
	return "unknown"
}

// Callback is an inline button identifier.
type Callback int

const (
	CallbackUnknown Callback = iota
	PassportCorrect
	PassportIncorrect
	VehicleCorrect
	VehicleIncorrect
	PaymentAgreed
	PaymentDisagreed
)

var callbackKeys = [...]string{
	CallbackUnknown:   "unknown",
	PassportCorrect:   "passportCorrect",
	PassportIncorrect: "passportIncorrect",
	VehicleCorrect:    "vehicleCorrect",
	VehicleIncorrect:  "vehicleIncorrect",
	PaymentAgreed:     "paymentAgreed",
	PaymentDisagreed:  "paymentDisagreed",
}

// Callbacks lists every known callback in declaration order.
func Callbacks() []Callback {
	return []Callback{PassportCorrect, PassportIncorrect, VehicleCorrect, VehicleIncorrect, PaymentAgreed, PaymentDisagreed}
}

// ParseCallback maps a button key to a Callback.
func ParseCallback(key string) Callback {
	key = strings.TrimSpace(key)
	for _, cb := range Callbacks() {
		if callbackKeys[cb] == key {
			return cb
		}
	}
	return CallbackUnknown
}

// Key is the wire identifier carried by the button.
func (c Callback) Key() string {
	if c < 0 || int(c) >= len(callbackKeys) {
		return callbackKeys[CallbackUnknown]
	}
	return callbackKeys[c]
}

func (c Callback) String() string { return c.Key() }
