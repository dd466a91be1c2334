// Package webhook delivers reported events to an HTTPS endpoint.
//
// Events are queued and sent by a single background worker so that a slow
// or unreachable endpoint never holds up the code that reported the error.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/isseis/go-ezerr/ezerr"
)

const (
	httpTimeout = 5 * time.Second

	defaultQueueSize   = 64
	defaultBackoffBase = 2 * time.Second
	defaultRetryCount  = 3
)

// Format selects the request body layout.
type Format string

const (
	// FormatJSON posts the event as {"id","name","payload"}.
	FormatJSON Format = "json"
	// FormatSlack posts a Slack incoming-webhook message.
	FormatSlack Format = "slack"
)

// Static errors
var (
	ErrServerError       = errors.New("server error")
	ErrClientError       = errors.New("client error")
	ErrInvalidWebhookURL = errors.New("invalid webhook URL")
	ErrInvalidFormat     = errors.New("invalid webhook format")
	ErrClosed            = errors.New("webhook publisher closed")
)

// BackoffConfig defines the retry backoff configuration
type BackoffConfig struct {
	Base       time.Duration // first retry delay, doubled on every attempt
	RetryCount int           // 0 disables retries; negative means the default
}

// Options configures a Publisher.
type Options struct {
	URL        string
	Format     Format
	QueueSize  int
	Backoff    BackoffConfig
	HTTPClient *http.Client
	Logger     *slog.Logger

	// allowHTTP lets tests use httptest.NewServer.
	allowHTTP bool
}

// Publisher is an asynchronous ezerr.Publisher posting to a webhook.
type Publisher struct {
	url     string
	format  Format
	client  *http.Client
	backoff BackoffConfig
	logger  *slog.Logger

	queue   chan ezerr.Event
	done    chan struct{}
	stop    context.CancelFunc
	mu      sync.RWMutex
	closed  bool
	stopped sync.Once
}

// ValidateURL checks that rawURL is an absolute HTTPS URL.
func ValidateURL(rawURL string) error {
	return validateURL(rawURL, false)
}

func validateURL(rawURL string, allowHTTP bool) error {
	if rawURL == "" {
		return fmt.Errorf("%w: empty URL", ErrInvalidWebhookURL)
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: failed to parse URL: %v", ErrInvalidWebhookURL, err)
	}
	if parsed.Scheme != "https" && !(allowHTTP && parsed.Scheme == "http") {
		return fmt.Errorf("%w: URL must use HTTPS scheme, got: %s", ErrInvalidWebhookURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: URL must have a host", ErrInvalidWebhookURL)
	}
	return nil
}

// ParseFormat parses "json" or "slack". Empty means json.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatSlack:
		return FormatSlack, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// New validates opts and starts the delivery worker. Call Close to drain it.
func New(opts Options) (*Publisher, error) {
	if err := validateURL(opts.URL, opts.allowHTTP); err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Backoff.Base <= 0 {
		opts.Backoff.Base = defaultBackoffBase
	}
	if opts.Backoff.RetryCount < 0 {
		opts.Backoff.RetryCount = defaultRetryCount
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: httpTimeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		url:     opts.URL,
		format:  format,
		client:  opts.HTTPClient,
		backoff: opts.Backoff,
		logger:  opts.Logger,
		queue:   make(chan ezerr.Event, opts.QueueSize),
		done:    make(chan struct{}),
		stop:    cancel,
	}
	go p.run(ctx)
	return p, nil
}

// Publish enqueues ev. When the queue is full or the publisher is closed
// the event is dropped with a warning.
func (p *Publisher) Publish(_ context.Context, ev ezerr.Event) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("Webhook publisher closed, dropping event", "event_id", ev.ID)
		return
	}
	select {
	case p.queue <- ev:
	default:
		p.logger.Warn("Webhook queue full, dropping event", "event_id", ev.ID, "queue_size", cap(p.queue))
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
// When ctx ends first, in-flight retries are abandoned and ctx.Err() is
// returned.
func (p *Publisher) Close(ctx context.Context) error {
	p.stopped.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
	})

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.stop()
		<-p.done
		return ctx.Err()
	}
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	defer p.stop()
	for ev := range p.queue {
		if ctx.Err() != nil {
			continue
		}
		if err := p.Send(ctx, ev); err != nil {
			p.logger.Error("Webhook delivery failed", "event_id", ev.ID, "error", err)
		}
	}
}

// Send posts ev synchronously, retrying on 429 and 5xx responses.
func (p *Publisher) Send(ctx context.Context, ev ezerr.Event) error {
	body, err := p.encode(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	var lastErr error
	delay := p.backoff.Base
	for attempt := 0; attempt <= p.backoff.RetryCount; attempt++ {
		if attempt > 0 {
			p.logger.Debug("Retrying webhook delivery", "attempt", attempt+1, "backoff", delay, "event_id", ev.ID)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = p.post(ctx, body)
		if lastErr == nil {
			p.logger.Debug("Webhook delivered", "event_id", ev.ID, "attempt", attempt+1)
			return nil
		}
		if errors.Is(lastErr, ErrClientError) {
			return lastErr
		}
		p.logger.Warn("Webhook attempt failed", "error", lastErr, "attempt", attempt+1, "event_id", ev.ID)
	}
	return fmt.Errorf("failed after %d attempts: %w", p.backoff.RetryCount+1, lastErr)
}

func (p *Publisher) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		p.logger.Debug("Failed to close response body", "error", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, resp.StatusCode)
	default:
		return fmt.Errorf("%w: %d", ErrClientError, resp.StatusCode)
	}
}

func (p *Publisher) encode(ev ezerr.Event) ([]byte, error) {
	if p.format == FormatSlack {
		return json.Marshal(slackMessage(ev))
	}
	return json.Marshal(ev)
}
