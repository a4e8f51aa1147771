// Package cmd is the process entry point shared by bot binaries. It finds
// the config file, builds the app and runs the bot until SIGINT or SIGTERM.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	coreconfig "github.com/m3rciful/insurebot/core/config"
	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram"

	"github.com/joho/godotenv"
)

// ConfigCarrier is a bot config that embeds the core runtime config.
type ConfigCarrier interface {
	CoreConfig() *coreconfig.Config
}

// TelegramApp hands the assembled bot to the runtime.
type TelegramApp interface {
	TelegramRunOptions() (telegram.RunOptions, error)
}

// Options wire a bot binary to Run.
type Options struct {
	// ConfigEnvVar names the variable holding the config path
	// (CONFIG_PATH when empty); DefaultConfigPath is used when it is unset.
	ConfigEnvVar      string
	DefaultConfigPath string

	LoadConfig func(path string) (ConfigCarrier, error)
	Bootstrap  func(cfg ConfigCarrier) (TelegramApp, error)

	// EnvFile is read into the environment before anything else (.env
	// when empty). Variables already set win; a missing file is fine.
	EnvFile string

	// Start replaces telegram.Run.
	Start func(ctx context.Context, opts telegram.RunOptions) error
	// Signals replaces the SIGINT/SIGTERM context.
	Signals func() (context.Context, context.CancelFunc)
}

// Run loads the config, bootstraps the app and blocks while the bot runs.
func Run(opts Options) error {
	if opts.LoadConfig == nil || opts.Bootstrap == nil {
		return errors.New("cmd: LoadConfig and Bootstrap are required")
	}
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return err
	}
	path, err := configPath(opts)
	if err != nil {
		return err
	}

	started := time.Now()
	log.Printf("loading config: %s", path)
	cfg, err := opts.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("cmd: load config: %w", err)
	}
	if cfg.CoreConfig() == nil {
		return errors.New("cmd: config has no core section")
	}
	app, err := opts.Bootstrap(cfg)
	if err != nil {
		return fmt.Errorf("cmd: bootstrap: %w", err)
	}
	defer func() {
		if err := logger.Shutdown(); err != nil {
			log.Printf("logger shutdown: %v", err)
		}
	}()

	runOpts, err := app.TelegramRunOptions()
	if err != nil {
		return fmt.Errorf("cmd: run options: %w", err)
	}
	appStart, appStop := runOpts.OnStart, runOpts.OnStop
	runOpts.OnStart = func(ctx context.Context, rt telegram.Runtime) error {
		if appStart != nil {
			if err := appStart(ctx, rt); err != nil {
				return err
			}
		}
		logger.Info(ctx, logger.ComponentApp, "app.started",
			slog.Duration("startup", logger.RoundMS(time.Since(started))),
		)
		return nil
	}
	runOpts.OnStop = func(ctx context.Context, rt telegram.Runtime) error {
		logger.Info(ctx, logger.ComponentApp, "app.stopping",
			slog.Duration("uptime", logger.RoundMS(time.Since(started))),
		)
		if appStop == nil {
			return nil
		}
		return appStop(ctx, rt)
	}

	signals := opts.Signals
	if signals == nil {
		signals = func() (context.Context, context.CancelFunc) {
			return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		}
	}
	ctx, cancel := signals()
	defer cancel()

	start := opts.Start
	if start == nil {
		start = telegram.Run
	}
	return start(ctx, runOpts)
}

func configPath(opts Options) (string, error) {
	env := opts.ConfigEnvVar
	if env == "" {
		env = "CONFIG_PATH"
	}
	if p := os.Getenv(env); p != "" {
		return p, nil
	}
	if opts.DefaultConfigPath != "" {
		return opts.DefaultConfigPath, nil
	}
	return "", fmt.Errorf("cmd: set %s or a default config path", env)
}

func loadEnvFile(name string) error {
	if name == "" {
		name = ".env"
	}
	err := godotenv.Load(name)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("cmd: read %s: %w", name, err)
	}
	log.Printf("environment loaded from %s", name)
	return nil
}
