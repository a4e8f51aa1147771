package telegram

import (
	"fmt"
	"strings"

	"github.com/m3rciful/insurebot/core/telegram/callbacks"

	tele "gopkg.in/telebot.v4"
)

// Command binds a slash command to its handler.
type Command struct {
	// Name includes the leading slash, e.g. "/start".
	Name        string
	Description string
	Handler     tele.HandlerFunc
	// AdminOnly commands run only for telegram.admin_id and stay out of
	// the command menu.
	AdminOnly bool
}

// Registry collects commands and callback handlers before the bot starts.
// It is read-only once Run has been called.
type Registry struct {
	commands  []Command
	callbacks map[string]tele.HandlerFunc
	notFound  tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback handler
// answers "Unsupported action".
func NewRegistry() *Registry {
	return &Registry{
		callbacks: make(map[string]tele.HandlerFunc),
		notFound: func(c tele.Context) error {
			return callbacks.Answer(c, &tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// AddCommand registers cmd. Names must start with a slash and be unique.
func (r *Registry) AddCommand(cmd Command) error {
	switch {
	case !strings.HasPrefix(cmd.Name, "/") || len(cmd.Name) < 2:
		return fmt.Errorf("telegram: command name %q must start with /", cmd.Name)
	case cmd.Handler == nil || cmd.Description == "":
		return fmt.Errorf("telegram: command %s needs a handler and a description", cmd.Name)
	}
	for _, have := range r.commands {
		if have.Name == cmd.Name {
			return fmt.Errorf("telegram: command %s registered twice", cmd.Name)
		}
	}
	r.commands = append(r.commands, cmd)
	return nil
}

// Commands returns the registered commands in registration order.
func (r *Registry) Commands() []Command {
	return append([]Command(nil), r.commands...)
}

// Menu lists the commands shown in the Telegram command menu.
func (r *Registry) Menu() []tele.Command {
	var menu []tele.Command
	for _, cmd := range r.commands {
		if cmd.AdminOnly {
			continue
		}
		menu = append(menu, tele.Command{Text: strings.TrimPrefix(cmd.Name, "/"), Description: cmd.Description})
	}
	return menu
}

// AddCallback registers the handler for inline buttons with unique key.
func (r *Registry) AddCallback(key string, h tele.HandlerFunc) error {
	if key == "" || h == nil {
		return fmt.Errorf("telegram: callback %q needs a key and a handler", key)
	}
	if _, ok := r.callbacks[key]; ok {
		return fmt.Errorf("telegram: callback %s registered twice", key)
	}
	r.callbacks[key] = h
	return nil
}

// Callback returns the handler for key. Unknown keys get the not-found
// handler and false.
func (r *Registry) Callback(key string) (tele.HandlerFunc, bool) {
	if h, ok := r.callbacks[key]; ok {
		return h, true
	}
	return r.notFound, false
}

// CallbackCount is the number of registered callback keys.
func (r *Registry) CallbackCount() int {
	return len(r.callbacks)
}

// SetCallbackNotFound replaces the handler for unknown callback keys.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.notFound = h
	}
}
