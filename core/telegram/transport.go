package telegram

import (
	"log/slog"
	"net"
	"net/http"
	"path"
	"time"

	coreconfig "github.com/m3rciful/insurebot/core/config"
	"github.com/m3rciful/insurebot/core/logger"
	"github.com/m3rciful/insurebot/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

const (
	apiAttempts = 3
	apiBackoff  = time.Second
	// apiSlack is added to the long-poll wait to form the client timeout.
	apiSlack = 20 * time.Second
)

func newPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:   cfg.Webhook.Addr(),
			Endpoint: &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{Timeout: cfg.Telegram.LongPollTimeout()}
}

// apiClient returns the client for Bot API calls. Its timeout covers a
// full getUpdates wait; network failures are retried by the transport and
// reported through onRetry.
func apiClient(pollWait time.Duration, onRetry func(kind string)) *http.Client {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:   true,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{
		Timeout: pollWait + apiSlack,
		Transport: &retryTransport{
			next:     base,
			attempts: apiAttempts,
			backoff:  apiBackoff,
			onRetry:  onRetry,
		},
	}
}

// retryTransport repeats requests that failed before a response arrived.
// Requests whose body cannot be replayed are sent once.
type retryTransport struct {
	next     http.RoundTripper
	attempts int
	backoff  time.Duration
	onRetry  func(kind string)
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	for attempt := 1; ; attempt++ {
		resp, err := t.next.RoundTrip(req)
		if err == nil || attempt >= t.attempts || ctx.Err() != nil || !netutil.Retryable(err) {
			return resp, err
		}
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			return resp, err
		}

		kind := netutil.Classify(err)
		if t.onRetry != nil {
			t.onRetry(kind)
		}
		logger.Debug(ctx, logger.ComponentTG, "api.retry",
			slog.String("status", "retry"),
			slog.String("method", path.Base(req.URL.Path)),
			slog.Int("attempt", attempt),
			slog.String("kind", kind),
		)
		if err := netutil.Sleep(ctx, t.backoff*time.Duration(attempt)); err != nil {
			return nil, err
		}
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			req = req.Clone(ctx)
			req.Body = body
		}
	}
}
