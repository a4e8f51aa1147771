// Package telegram wires the bot runtime: transport, command registry,
// middleware chain and the outbound dispatcher.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/insurebot/core/config"
	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/metrics"
	"github.com/m3rciful/insurebot/core/telegram/helpers"
	"github.com/m3rciful/insurebot/core/telegram/netutil"
	"github.com/m3rciful/insurebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

// Route binds a handler to a telebot endpoint (a command string or one of
// the tele.On* constants).
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describes the bot Run starts.
type RunOptions struct {
	Config      *coreconfig.Config
	Registry    *Registry
	Dispatcher  sender.Options
	Middlewares []tele.MiddlewareFunc
	Routes      []Route

	// OnStart runs after routes are installed and before polling starts;
	// an error aborts Run.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs once polling has stopped.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *sender.Dispatcher
	Registry   *Registry
}

// Run starts the bot and blocks until ctx is cancelled or the poller exits.
// Cancellation is a clean shutdown and returns nil.
func Run(ctx context.Context, opts RunOptions) error {
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		Poller:  newPoller(cfg),
		Client:  apiClient(cfg.Telegram.LongPollTimeout(), metrics.Default().ObserveAPIRetry),
		OnError: logBotError,
	})
	if err != nil {
		return fmt.Errorf("telegram: new bot: %s", netutil.Redact(err))
	}
	logger.Info(ctx, logger.ComponentTG, "bot.ready",
		slog.String("mode", cfg.Telegram.RunMode),
		slog.String("username", bot.Me.Username),
	)

	if cfg.Telegram.RunMode == coreconfig.RunModeLongpoll {
		if err := bot.RemoveWebhook(); err != nil {
			logger.Warn(ctx, logger.ComponentTG, "webhook.remove",
				slog.String("status", "fail"),
				slog.String("err", netutil.Redact(err)),
			)
		}
	}

	for _, mw := range opts.Middlewares {
		bot.Use(mw)
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	if err := bot.SetCommands(reg.Menu()); err != nil {
		logger.Warn(ctx, logger.ComponentWire, "commands.publish",
			slog.String("status", "fail"),
			slog.String("err", netutil.Redact(err)),
		)
	}

	d := sender.New(opts.Dispatcher)
	helpers.SetDispatcher(d)
	defer func() {
		d.Close()
		helpers.SetDispatcher(nil)
	}()

	rt := Runtime{Bot: bot, Dispatcher: d, Registry: reg}
	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
	case <-done:
	}

	if opts.OnStop != nil {
		return opts.OnStop(context.WithoutCancel(ctx), rt)
	}
	return nil
}

func logBotError(err error, c tele.Context) {
	ctx := context.Background()
	if c != nil {
		ctx = helpers.Context(c)
	}
	logger.Error(ctx, logger.ComponentTG, "bot.error",
		slog.String("status", "fail"),
		slog.String("kind", netutil.Classify(err)),
		slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
	)
}
