package app

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/internal/policy"
)

const defaultTypingInterval = 4 * time.Second

// keepTyping runs fn and calls send right away and then every interval
// until fn returns. The indicator task never outlives fn.
func keepTyping[T any](ctx context.Context, interval time.Duration, send func() error, fn func(context.Context) (T, error)) (T, error) {
	if interval <= 0 {
		interval = defaultTypingInterval
	}
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			if err := send(); err != nil {
				logger.Debug(ctx, logger.ComponentTG, "typing.failed",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
			}
			select {
			case <-done:
				return nil
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
		}
	})

	var out T
	g.Go(func() error {
		defer close(done)
		var err error
		out, err = fn(gctx)
		return err
	})

	err := g.Wait()
	return out, err
}

// typingGenerator shows the typing indicator in the chat carried by the
// context while the wrapped generator runs.
type typingGenerator struct {
	next     policy.Generator
	interval time.Duration
	notify   func(chatID int64) error
}

func (t *typingGenerator) GeneratePolicy(ctx context.Context, req policy.Request) (string, error) {
	chatID := logger.ChatIDFrom(ctx)
	if chatID == 0 || t.notify == nil {
		return t.next.GeneratePolicy(ctx, req)
	}
	return keepTyping(ctx, t.interval,
		func() error { return t.notify(chatID) },
		func(ctx context.Context) (string, error) { return t.next.GeneratePolicy(ctx, req) },
	)
}
