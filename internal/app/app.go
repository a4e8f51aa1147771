// Package app wires the insurance workflow into the Telegram runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/m3rciful/insurebot/core/bootstrap"
	corecmd "github.com/m3rciful/insurebot/core/cmd"
	"github.com/m3rciful/insurebot/core/logger"
	tg "github.com/m3rciful/insurebot/core/telegram"
	"github.com/m3rciful/insurebot/core/telegram/router"
	"github.com/m3rciful/insurebot/core/telegram/sender"
	"github.com/m3rciful/insurebot/internal/config"
	"github.com/m3rciful/insurebot/internal/extract"
	"github.com/m3rciful/insurebot/internal/flow"
	"github.com/m3rciful/insurebot/internal/policy"
	"github.com/m3rciful/insurebot/internal/session"

	tele "gopkg.in/telebot.v4"
)

const shutdownTimeout = 5 * time.Second

// App owns the workflow services and exposes them to the bot runtime.
type App struct {
	cfg       *config.Config
	infra     *bootstrap.Result
	store     session.Store
	machine   *flow.Machine
	registry  *tg.Registry
	startedAt time.Time

	// fetch downloads a Telegram file; replaced in tests.
	fetch func(c tele.Context, f *tele.File, limit int64) ([]byte, error)

	bot        atomic.Pointer[tele.Bot]
	dispatcher atomic.Pointer[sender.Dispatcher]
}

// Bootstrap adapts New to the core command runner.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(cfg)
}

// LoadConfig adapts config.Load to the core command runner.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// New initialises logging and metrics, then builds the providers and the
// workflow from cfg.
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	infra, err := bootstrap.Run(bootstrap.Options{
		Config:           cfg.CoreConfig(),
		MetricsNamespace: cfg.Metrics.Namespace,
		MetricsListen:    cfg.Metrics.Listen,
	})
	if err != nil {
		return nil, err
	}

	ext, err := newExtractor(cfg.OCR, infra.Metrics)
	if err != nil {
		_ = infra.Close(context.Background())
		return nil, err
	}
	gen, err := newGenerator(cfg.Generation, infra.Metrics)
	if err != nil {
		_ = infra.Close(context.Background())
		return nil, err
	}

	a, err := build(cfg, infra, ext, gen)
	if err != nil {
		_ = infra.Close(context.Background())
		return nil, err
	}
	logger.Info(context.Background(), logger.ComponentApp, "app.ready",
		slog.String("status", "ok"),
		slog.String("ocr", cfg.OCR.Provider),
		slog.String("generation", cfg.Generation.Provider),
		slog.Int("price", cfg.Bot.Price),
	)
	return a, nil
}

func build(cfg *config.Config, infra *bootstrap.Result, ext extract.Extractor, gen policy.Generator) (*App, error) {
	if infra == nil {
		infra = &bootstrap.Result{}
	}
	a := &App{
		cfg:       cfg,
		infra:     infra,
		store:     session.NewMemoryStore(),
		startedAt: time.Now(),
		fetch:     downloadFile,
	}

	typing := &typingGenerator{
		next:     gen,
		interval: cfg.Bot.TypingInterval,
		notify:   a.notifyTyping,
	}
	machine, err := flow.New(flow.Config{
		Store:     a.store,
		Extractor: ext,
		Generator: typing,
		Price:     cfg.Bot.Price,
	})
	if err != nil {
		return nil, err
	}
	a.machine = machine

	if err := infra.Metrics.RegisterGauge("sessions_tracked", "Chats with an in-memory session.", func() float64 {
		return float64(a.store.Len())
	}); err != nil {
		return nil, err
	}

	if a.registry, err = a.buildRegistry(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) buildRegistry() (*tg.Registry, error) {
	reg := tg.NewRegistry()
	cmds := []tg.Command{
		{Name: "/start", Description: "Start conversation", Handler: a.handleCommand(flow.CommandStart)},
		{Name: "/menu", Description: "Show bot menu", Handler: a.handleCommand(flow.CommandMenu)},
		{Name: "/send", Description: "Get information about required documents", Handler: a.handleCommand(flow.CommandSend)},
		{Name: "/restart", Description: "Remove sent data and fill it one more time", Handler: a.handleCommand(flow.CommandRestart)},
		{Name: "/stats", Description: "Bot statistics", Handler: a.handleStats, AdminOnly: true},
	}
	for _, cmd := range cmds {
		if err := reg.AddCommand(cmd); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	for _, cb := range flow.Callbacks() {
		if err := reg.AddCallback(cb.Key(), a.handleCallback(cb)); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
	}
	reg.SetCallbackNotFound(a.handleCallback(flow.CallbackUnknown))
	return reg, nil
}

// TelegramRunOptions assembles middlewares, routes and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()

	routes := router.CommandRoutes(a.registry, router.CommandRouteOptions{
		AdminID:       core.Telegram.AdminID,
		OnAdminReject: a.handleAdminOnly,
	})
	routes = append(routes,
		router.CallbackRoute(a.registry),
		router.PhotoRoute(a.handlePhoto),
	)
	routes = append(routes, router.TextRoutes(router.TextOptions{
		UnknownText:     a.handleText,
		UnknownDocument: a.handleDocument,
	})...)

	return tg.RunOptions{
		Config:     core,
		Registry:   a.registry,
		Dispatcher: sender.Options{OnFailure: a.infra.Metrics.ObserveSendFailure},
		Middlewares: tg.DefaultMiddlewares(core, tg.MiddlewareOptions{
			OnLimited: a.handleLimited,
			Locker:    a.store,
		}),
		Routes:  routes,
		OnStart: a.onStart,
		OnStop:  a.onStop,
	}, nil
}

func (a *App) onStart(_ context.Context, rt tg.Runtime) error {
	a.bot.Store(rt.Bot)
	a.dispatcher.Store(rt.Dispatcher)
	return nil
}

// onStop receives the already cancelled run context.
func (a *App) onStop(_ context.Context, _ tg.Runtime) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.infra.Close(ctx); err != nil {
		return fmt.Errorf("app: metrics shutdown: %w", err)
	}
	return nil
}

func (a *App) notifyTyping(chatID int64) error {
	bot := a.bot.Load()
	if bot == nil {
		return nil
	}
	return bot.Notify(tele.ChatID(chatID), tele.Typing)
}
