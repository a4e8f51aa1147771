// Package sender runs outbound Bot API calls on a small pool of workers.
// Calls for one chat always go to the same worker and keep their order.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull is returned when the worker owning the chat is saturated.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options tunes the dispatcher. Zero values select the defaults noted on
// each field.
type Options struct {
	// Workers is the number of chat shards (4).
	Workers int
	// QueueSize is the number of pending calls per worker (64).
	QueueSize int
	// MaxRetries bounds repeats of a transient failure (2); negative disables.
	MaxRetries int
	// Backoff is the base delay, multiplied by the attempt number (1s).
	Backoff time.Duration
	// Budget caps the time one call may spend including retries (15s).
	Budget time.Duration
	// OnFailure receives the error kind of every call that gives up.
	OnFailure func(kind string)
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	switch {
	case o.MaxRetries == 0:
		o.MaxRetries = 2
	case o.MaxRetries < 0:
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = time.Second
	}
	if o.Budget <= 0 {
		o.Budget = 15 * time.Second
	}
	return o
}

type call struct {
	ctx  context.Context
	name string
	fn   func() error
}

// Dispatcher executes submitted calls asynchronously.
type Dispatcher struct {
	opts     Options
	shards   []chan call
	mu       sync.RWMutex
	closed   bool
	wg       sync.WaitGroup
	failures atomic.Uint64
}

// New starts the workers.
func New(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, shards: make([]chan call, opts.Workers)}
	for i := range d.shards {
		d.shards[i] = make(chan call, opts.QueueSize)
		d.wg.Add(1)
		go d.work(d.shards[i])
	}
	return d
}

// Submit queues fn for the chat recorded in ctx. name labels the call in logs.
func (d *Dispatcher) Submit(ctx context.Context, name string, fn func() error) error {
	if fn == nil {
		return errors.New("telegram sender: nil call")
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	chat := logger.ChatIDFrom(ctx)
	if chat < 0 {
		chat = -chat
	}
	select {
	case d.shards[chat%int64(len(d.shards))] <- call{ctx: ctx, name: name, fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Failures is the number of calls that gave up since New.
func (d *Dispatcher) Failures() uint64 {
	return d.failures.Load()
}

// Close rejects new calls and waits until queued ones have run.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.shards {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) work(queue <-chan call) {
	defer d.wg.Done()
	for c := range queue {
		d.run(c)
	}
}

func (d *Dispatcher) run(c call) {
	parent := c.ctx
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, d.opts.Budget)
	defer cancel()

	start := time.Now()
	attempt := 1
	err := c.fn()
	for err != nil {
		wait, ok := d.retryDelay(err, attempt)
		if !ok {
			break
		}
		if deadline, set := ctx.Deadline(); set && time.Until(deadline) < wait {
			break
		}
		logger.Debug(ctx, logger.ComponentSender, "send.retry",
			slog.String("status", "retry"),
			slog.String("call", c.name),
			slog.Int("attempt", attempt),
			slog.String("kind", netutil.Classify(err)),
			slog.Duration("wait", wait),
		)
		if sleepErr := netutil.Sleep(ctx, wait); sleepErr != nil {
			break
		}
		attempt++
		err = c.fn()
	}

	if err == nil {
		logger.Debug(ctx, logger.ComponentSender, "send.ok",
			slog.String("status", "ok"),
			slog.String("call", c.name),
			slog.Int("attempts", attempt),
			slog.Duration("duration", time.Since(start)),
		)
		return
	}

	kind := netutil.Classify(err)
	d.failures.Add(1)
	logger.Error(ctx, logger.ComponentSender, "send.fail",
		slog.String("status", "fail"),
		slog.String("call", c.name),
		slog.Int("attempts", attempt),
		slog.String("kind", kind),
		slog.String("err", logger.SanitizeLimit(netutil.Redact(err), 256)),
		slog.Duration("duration", time.Since(start)),
	)
	if d.opts.OnFailure != nil {
		d.opts.OnFailure(kind)
	}
}

// retryDelay honours flood control before the generic transient check.
func (d *Dispatcher) retryDelay(err error, attempt int) (time.Duration, bool) {
	if attempt > d.opts.MaxRetries {
		return 0, false
	}
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second, true
	}
	if !netutil.Retryable(err) {
		return 0, false
	}
	return d.opts.Backoff * time.Duration(attempt), true
}
