package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/internal/policy"
)

func TestKeepTypingStopsWhenWorkEnds(t *testing.T) {
	var sends atomic.Int32
	out, err := keepTyping(context.Background(), 5*time.Millisecond,
		func() error { sends.Add(1); return nil },
		func(context.Context) (string, error) {
			time.Sleep(30 * time.Millisecond)
			return "done", nil
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "done", out)

	n := sends.Load()
	assert.GreaterOrEqual(t, n, int32(2))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, sends.Load())
}

func TestKeepTypingPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := keepTyping(context.Background(), time.Hour,
		func() error { return errors.New("chat not found") },
		func(context.Context) (int, error) { return 0, boom },
	)
	require.ErrorIs(t, err, boom)
}

func TestTypingGeneratorUsesChatFromContext(t *testing.T) {
	gen := &stubGenerator{out: "text"}
	var notified atomic.Int64
	typing := &typingGenerator{
		next:     gen,
		interval: time.Hour,
		notify:   func(chatID int64) error { notified.Store(chatID); return nil },
	}

	_, err := typing.GeneratePolicy(context.Background(), policy.Request{})
	require.NoError(t, err)
	assert.Zero(t, notified.Load())

	ctx := logger.WithMeta(context.Background(), logger.Meta{UpdateID: 1, UserID: 9, ChatID: 77})
	out, err := typing.GeneratePolicy(ctx, policy.Request{})
	require.NoError(t, err)
	assert.Equal(t, "text", out)
	assert.Equal(t, int64(77), notified.Load())
	assert.Equal(t, int32(2), gen.calls.Load())
}
