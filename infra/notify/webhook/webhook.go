// Package webhook posts alert messages to an HTTP endpoint such as a Slack
// incoming webhook. Delivery is retried with exponential backoff and guarded
// by a circuit breaker so a dead endpoint does not stall every batch.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/factory"
	"github.com/kilianp07/hydroalert/core/monitoring"
	"github.com/kilianp07/hydroalert/infra/logger"
)

const (
	FormatSlack = "slack"
	FormatJSON  = "json"
)

// Config configures the webhook notifier.
type Config struct {
	URL             string            `json:"url"`
	Format          string            `json:"format"`
	Headers         map[string]string `json:"headers"`
	TimeoutMS       int               `json:"timeout_ms"`
	MaxRetries      int               `json:"max_retries"`
	BackoffMS       int               `json:"backoff_ms"`
	BreakerFailures int               `json:"breaker_failures"`
	BreakerOpenMS   int               `json:"breaker_open_ms"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Format == "" {
		c.Format = FormatSlack
	}
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 200
	}
	if c.BreakerFailures <= 0 {
		c.BreakerFailures = 3
	}
	if c.BreakerOpenMS <= 0 {
		c.BreakerOpenMS = 30000
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("webhook: url is required")
	}
	if c.Format != FormatSlack && c.Format != FormatJSON {
		return fmt.Errorf("webhook: unknown format %q", c.Format)
	}
	return nil
}

func init() {
	_ = alert.RegisterNotifier("webhook", func(conf map[string]any) (alert.Notifier, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c, nil)
	})
}

// Notifier posts alert messages to a webhook.
type Notifier struct {
	cfg     Config
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logger.Logger
}

var _ alert.Notifier = (*Notifier)(nil)

// New creates a Notifier. A nil client uses one with the configured timeout.
func New(cfg Config, client *http.Client) (*Notifier, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond}
	}
	log := logger.New("webhook_notifier")
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "webhook",
		Timeout: time.Duration(cfg.BreakerOpenMS) * time.Millisecond,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(cfg.BreakerFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("circuit %s: %s -> %s", name, from, to)
		},
	})
	return &Notifier{cfg: cfg, client: client, breaker: breaker, log: log}, nil
}

// State reports the circuit breaker state.
func (n *Notifier) State() gobreaker.State { return n.breaker.State() }

// Notify posts msg. 4xx responses are not retried.
func (n *Notifier) Notify(ctx context.Context, msg alert.Message) error {
	body, err := n.encode(msg)
	if err != nil {
		return err
	}
	_, err = n.breaker.Execute(func() (any, error) {
		bo := backoff.NewExponentialBackOff()
		bo.InitialInterval = time.Duration(n.cfg.BackoffMS) * time.Millisecond
		bo.MaxElapsedTime = 0
		policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(n.cfg.MaxRetries)), ctx)
		return nil, backoff.Retry(func() error { return n.post(ctx, body) }, policy)
	})
	if err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "webhook"})
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

func (n *Notifier) encode(msg alert.Message) ([]byte, error) {
	if n.cfg.Format == FormatJSON {
		return json.Marshal(msg)
	}
	return json.Marshal(struct {
		Text string `json:"text"`
	}{Text: "*" + msg.Subject + "*\n" + msg.Body})
}

func (n *Notifier) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range n.cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warnf("post failed: %v", err)
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
	default:
		n.log.Warnf("post returned status %d", resp.StatusCode)
		return fmt.Errorf("status %d", resp.StatusCode)
	}
}
