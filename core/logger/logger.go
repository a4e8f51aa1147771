// Package logger writes one structured line per event. Each line names the
// component that emitted it and the event; update metadata travels in the
// context and is appended by the handler.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/insurebot/core/buildinfo"
	coreconfig "github.com/m3rciful/insurebot/core/config"
)

// Component names shared across packages.
const (
	ComponentApp     = "app"
	ComponentTG      = "tg"
	ComponentWire    = "tg.wire"
	ComponentSender  = "tg.sender"
	ComponentFlow    = "flow"
	ComponentExtract = "extract"
	ComponentPolicy  = "policy"
	ComponentMetrics = "metrics"
)

var (
	current atomic.Pointer[slog.Logger]
	debugs  atomic.Pointer[sampler]
	level   slog.LevelVar

	fileMu sync.Mutex
	file   *os.File
)

// Init installs the process logger described by cfg and makes it the slog
// default. A second call replaces the logger and closes the previous file.
func Init(cfg coreconfig.LoggingConfig) error {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}
	spec := cfg.DebugSample
	if strings.TrimSpace(spec) == "" {
		spec = defaultDebugSample
	}
	s, err := newSampler(spec)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	f, err := openFile(cfg.File)
	if err != nil {
		return err
	}
	if f != nil {
		out = io.MultiWriter(os.Stdout, f)
	}

	level.Set(lvl)
	install(slog.New(newHandler(out, cfg.Format, &level)), s)
	swapFile(f)

	Info(context.Background(), ComponentApp, "logger.ready",
		slog.String("level", lvl.String()),
		slog.String("go_version", runtime.Version()),
		slog.String("build", buildinfo.String()),
	)
	return nil
}

// Shutdown closes the log file opened by Init, if any.
func Shutdown() error {
	return swapFile(nil)
}

func install(l *slog.Logger, s *sampler) {
	debugs.Store(s)
	current.Store(l)
	slog.SetDefault(l)
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logger: unknown level %q", raw)
}

func openFile(path string) (*os.File, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return f, nil
}

func swapFile(next *os.File) error {
	fileMu.Lock()
	prev := file
	file = next
	fileMu.Unlock()
	if prev == nil {
		return nil
	}
	if err := prev.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		return fmt.Errorf("logger: close log file: %w", err)
	}
	return nil
}

// Debug logs a debug event; high-volume events are thinned by the sampler.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelDebug, component, event, attrs)
}

// Info logs an info event.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelInfo, component, event, attrs)
}

// Warn logs a warning event.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelWarn, component, event, attrs)
}

// Error logs an error event.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	emit(ctx, slog.LevelError, component, event, attrs)
}

// emit drops the event when Init has not run.
func emit(ctx context.Context, lvl slog.Level, component, event string, attrs []slog.Attr) {
	l := current.Load()
	if l == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.Enabled(ctx, lvl) {
		return
	}
	if component == "" {
		component = ComponentApp
	}
	if event == "" {
		event = "unknown"
	}
	if lvl == slog.LevelDebug && !debugs.Load().allow(component, event) {
		return
	}
	l.LogAttrs(ctx, lvl, event, append([]slog.Attr{slog.String("component", component)}, attrs...)...)
}
