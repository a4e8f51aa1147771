package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/insurebot/core/logger"
	tg "github.com/m3rciful/insurebot/core/telegram"
	"github.com/m3rciful/insurebot/core/telegram/callbacks"
	"github.com/m3rciful/insurebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRouteOptions configures admin gating of commands.
type CommandRouteOptions struct {
	AdminID int64
	// OnAdminReject answers non-admins who call an admin command.
	OnAdminReject tele.HandlerFunc
}

// CommandRoutes returns one route per registered command.
func CommandRoutes(reg *tg.Registry, opts CommandRouteOptions) []tg.Route {
	cmds := reg.Commands()
	routes := make([]tg.Route, 0, len(cmds))
	for _, cmd := range cmds {
		name, h := handlerName(cmd.Name), cmd.Handler
		route := func(c tele.Context) error { return serve(c, name, h) }
		if cmd.AdminOnly {
			reject := opts.OnAdminReject
			route = middleware.AdminOnly(opts.AdminID, func(c tele.Context) error {
				return serve(c, name+".rejected", reject)
			})(route)
		}
		routes = append(routes, tg.Route{Endpoint: cmd.Name, Handler: route})
	}
	logger.Info(context.Background(), logger.ComponentWire, "routes.ready",
		slog.Int("commands", len(cmds)),
		slog.Int("callbacks", reg.CallbackCount()),
	)
	return routes
}

// CallbackRoute dispatches inline buttons by key. The button is answered
// after the handler unless the handler answered it itself.
func CallbackRoute(reg *tg.Registry) tg.Route {
	return tg.Route{Endpoint: tele.OnCallback, Handler: func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		defer func() { _ = callbacks.Answer(c) }()

		key, _ := callbacks.Parse(c.Callback())
		h, found := reg.Callback(key)
		name := "callback." + handlerName(key)
		if !found {
			name = "callback.unknown"
		}
		return serve(c, name, h, slog.String("cb_key", logger.SanitizeLimit(key, 64)))
	}}
}

// TextOptions answers messages no command or flow step claimed.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes covers free text and documents.
func TextRoutes(opts TextOptions) []tg.Route {
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: func(c tele.Context) error {
			return serve(c, "text", opts.UnknownText)
		}},
		{Endpoint: tele.OnDocument, Handler: func(c tele.Context) error {
			var extra []slog.Attr
			if msg := c.Message(); msg != nil && msg.Document != nil {
				doc := msg.Document
				extra = append(extra, slog.String("mime", doc.MIME), slog.Int64("bytes", int64(doc.FileSize)))
			}
			return serve(c, "document", opts.UnknownDocument, extra...)
		}},
	}
}

// PhotoRoute serves photo messages with h.
func PhotoRoute(h tele.HandlerFunc) tg.Route {
	return tg.Route{Endpoint: tele.OnPhoto, Handler: func(c tele.Context) error {
		if msg := c.Message(); msg == nil || msg.Photo == nil {
			return serve(c, "photo", nil)
		}
		return serve(c, "photo", h)
	}}
}
