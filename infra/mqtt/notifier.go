// Package mqtt publishes alert messages to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/factory"
	"github.com/kilianp07/hydroalert/core/monitoring"
	"github.com/kilianp07/hydroalert/infra/logger"
)

func init() {
	_ = alert.RegisterNotifier("mqtt", func(conf map[string]any) (alert.Notifier, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewNotifier(c)
	})
}

// Notifier publishes each alert message as one JSON document on the
// configured topic.
type Notifier struct {
	cli        pahoClient
	topic      string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
	now        func() time.Time
}

var _ alert.Notifier = (*Notifier)(nil)

type wireMessage struct {
	alert.Message
	SentAt time.Time `json:"sent_at"`
}

// NewNotifier connects to the broker, retrying with exponential backoff.
func NewNotifier(cfg Config) (*Notifier, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_notifier")
	opts.OnConnect = func(_ paho.Client) { log.Infof("MQTT connected to %s", cfg.Broker) }
	opts.OnConnectionLost = func(_ paho.Client, err error) { log.Errorf("connection lost: %v", err) }

	n := &Notifier{
		topic:      cfg.Topic,
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
		now:        time.Now,
	}
	c := newMQTTClient(opts)
	connect := func() error {
		if token := c.Connect(); token.Wait() && token.Error() != nil {
			log.Warnf("connect to %s failed: %v", cfg.Broker, token.Error())
			return token.Error()
		}
		return nil
	}
	if err := backoff.Retry(connect, n.policy(context.Background())); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	n.cli = c
	return n, nil
}

func (n *Notifier) policy(ctx context.Context) backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = n.backoff
	bo.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(n.maxRetries)), ctx)
}

// Notify publishes msg, retrying failed publishes.
func (n *Notifier) Notify(ctx context.Context, msg alert.Message) error {
	payload, err := json.Marshal(wireMessage{Message: msg, SentAt: n.now().UTC()})
	if err != nil {
		return err
	}
	attempt := 0
	publish := func() error {
		attempt++
		token := n.cli.Publish(n.topic, n.qos, n.retain, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			n.log.Errorf("publish attempt %d failed: %v", attempt, err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(publish, n.policy(ctx)); err != nil {
		monitoring.CaptureException(err, map[string]string{"module": "mqtt", "topic": n.topic})
		return fmt.Errorf("mqtt publish %s: %w", n.topic, err)
	}
	n.log.Infof("published alert for %d village(s) to %s", len(msg.Villages), n.topic)
	return nil
}

// Close disconnects from the broker.
func (n *Notifier) Close() {
	if n.cli != nil && n.cli.IsConnected() {
		n.cli.Disconnect(250)
	}
}
