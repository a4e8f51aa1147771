package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	dial := &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	cases := []struct {
		err       error
		kind      string
		retryable bool
	}{
		{nil, "", false},
		{context.Canceled, KindCancelled, false},
		{fmt.Errorf("send: %w", context.DeadlineExceeded), KindTimeout, true},
		{&url.Error{Op: "Post", URL: "u", Err: timeoutErr{}}, KindTimeout, true},
		{dial, KindDial, true},
		{&net.DNSError{Err: "no such host", Name: "api.telegram.org"}, KindDNS, true},
		{&tele.Error{Code: 403, Description: "Forbidden: bot was blocked by the user"}, KindHTTP4xx, false},
		{errors.New("telegram: Internal Server Error (502)"), KindHTTP5xx, true},
		{tele.FloodError{RetryAfter: 3}, KindFlood, false},
		{errors.New("boom"), KindUnknown, false},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.kind {
			t.Fatalf("Classify(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := Retryable(tc.err); got != tc.retryable {
			t.Fatalf("Retryable(%v) = %v, want %v", tc.err, got, tc.retryable)
		}
	}
}

func TestRedactMasksToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AA-secret_token/sendMessage": timeout`)
	if got := Redact(err); got != `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout` {
		t.Fatalf("Redact = %s", got)
	}
}

func TestSleepStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep = %v, want context.Canceled", err)
	}
	if err := Sleep(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("Sleep = %v", err)
	}
}
