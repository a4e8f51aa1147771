// Package netutil classifies errors returned by Telegram Bot API calls.
package netutil

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"regexp"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"
)

// Error kinds used as log values and metric labels.
const (
	KindTimeout   = "timeout"
	KindCancelled = "cancelled"
	KindDNS       = "dns"
	KindDial      = "dial"
	KindTLS       = "tls"
	KindFlood     = "flood"
	KindHTTP4xx   = "http_4xx"
	KindHTTP5xx   = "http_5xx"
	KindUnknown   = "unknown"
)

// statusSuffix matches the "(502)" telebot appends to API errors it has
// no dedicated type for.
var statusSuffix = regexp.MustCompile(`\((\d{3})\)$`)

// Classify maps err onto one of the Kind constants. It returns "" for nil.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return KindCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return KindFlood
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return KindDial
	}
	var alert tls.AlertError
	var verify *tls.CertificateVerificationError
	if errors.As(err, &alert) || errors.As(err, &verify) {
		return KindTLS
	}
	switch code := statusCode(err); {
	case code >= 500:
		return KindHTTP5xx
	case code >= 400:
		return KindHTTP4xx
	}
	return KindUnknown
}

// Retryable reports whether repeating the call may succeed: transport
// timeouts, failed dials, DNS hiccups and Telegram 5xx answers. Flood
// control is handled by the caller since it carries its own delay.
func Retryable(err error) bool {
	switch Classify(err) {
	case KindTimeout, KindDial, KindDNS, KindHTTP5xx:
		return true
	}
	return false
}

func statusCode(err error) int {
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return 400
	}
	if m := statusSuffix.FindStringSubmatch(err.Error()); m != nil {
		code, _ := strconv.Atoi(m[1])
		return code
	}
	return 0
}

// tokenPattern matches the bot token embedded in Bot API URLs.
var tokenPattern = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// Redact returns the error text with any bot token masked.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenPattern.ReplaceAllString(err.Error(), "bot<redacted>")
}

// Sleep waits for d or until ctx is done, returning ctx.Err in the latter case.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
