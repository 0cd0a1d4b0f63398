package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/factory"
	coremon "github.com/kilianp07/hydroalert/core/monitoring"
)

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

// mockClient implements pahoClient for tests.
type mockClient struct {
	opts        *paho.ClientOptions
	connectErrs []error
	connects    int
	published   []published
	publishErrs []error
	disconnects int
}

func (m *mockClient) IsConnected() bool { return true }
func (m *mockClient) Connect() paho.Token {
	m.connects++
	if len(m.connectErrs) > 0 {
		err := m.connectErrs[0]
		m.connectErrs = m.connectErrs[1:]
		return &dummyToken{err: err}
	}
	if m.opts != nil && m.opts.OnConnect != nil {
		m.opts.OnConnect(nil)
	}
	return &dummyToken{}
}
func (m *mockClient) Disconnect(uint) { m.disconnects++ }
func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b, _ := payload.([]byte)
	m.published = append(m.published, published{topic, qos, retained, b})
	if len(m.publishErrs) > 0 {
		err := m.publishErrs[0]
		m.publishErrs = m.publishErrs[1:]
		return &dummyToken{err: err}
	}
	return &dummyToken{}
}

type dummyToken struct{ err error }

func (d dummyToken) Wait() bool                     { return true }
func (d dummyToken) WaitTimeout(time.Duration) bool { return true }
func (d dummyToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (d dummyToken) Error() error                   { return d.err }

func useMock(t *testing.T, mc *mockClient) {
	t.Helper()
	newMQTTClient = func(o *paho.ClientOptions) pahoClient { mc.opts = o; return mc }
	t.Cleanup(func() { newMQTTClient = func(opts *paho.ClientOptions) pahoClient { return paho.NewClient(opts) } })
}

func sampleMessage() alert.Message {
	return alert.Render([]alert.Payload{{VillageID: "v1", Village: "Kalmeshwar", WSI: 91.5}}, 80)
}

func TestNotifyPublishesJSON(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", QoS: 1, Retain: true, BackoffMS: 1})
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	at := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return at }

	if err := n.Notify(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mc.published) != 1 {
		t.Fatalf("expected one publish, got %d", len(mc.published))
	}
	p := mc.published[0]
	if p.topic != DefaultTopic || p.qos != 1 || !p.retain {
		t.Fatalf("unexpected publish options %+v", p)
	}
	var got struct {
		Subject  string          `json:"subject"`
		Villages []alert.Payload `json:"villages"`
		SentAt   time.Time       `json:"sent_at"`
	}
	if err := json.Unmarshal(p.payload, &got); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if got.Subject != "[HydroAlert] Critical: 1 village(s) with WSI > 80" {
		t.Fatalf("unexpected subject %q", got.Subject)
	}
	if len(got.Villages) != 1 || got.Villages[0].WSI != 91.5 || !got.SentAt.Equal(at) {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestConnectRetries(t *testing.T) {
	mc := &mockClient{connectErrs: []error{fmt.Errorf("refused"), fmt.Errorf("refused")}}
	useMock(t, mc)
	if _, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 3, BackoffMS: 1}); err != nil {
		t.Fatalf("notifier: %v", err)
	}
	if mc.connects != 3 {
		t.Fatalf("expected 3 connect attempts, got %d", mc.connects)
	}
}

func TestConnectGivesUp(t *testing.T) {
	errs := make([]error, 5)
	for i := range errs {
		errs[i] = fmt.Errorf("refused")
	}
	mc := &mockClient{connectErrs: errs}
	useMock(t, mc)
	if _, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}); err == nil {
		t.Fatalf("expected connect error")
	}
	if mc.connects != 2 {
		t.Fatalf("expected 2 connect attempts, got %d", mc.connects)
	}
}

func TestPublishRetry(t *testing.T) {
	mc := &mockClient{publishErrs: []error{fmt.Errorf("net fail"), nil}}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1})
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	if err := n.Notify(context.Background(), sampleMessage()); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(mc.published) != 2 {
		t.Fatalf("expected retries, got %d publishes", len(mc.published))
	}
}

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) Recover()            {}
func (r *recordMonitor) Flush(time.Duration) {}

func TestPublishErrorCaptured(t *testing.T) {
	fail := fmt.Errorf("net fail")
	mc := &mockClient{publishErrs: []error{fail, fail, fail}}
	useMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", Topic: "alerts/nagpur", MaxRetries: 2, BackoffMS: 1})
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	if err := n.Notify(context.Background(), sampleMessage()); err == nil {
		t.Fatalf("expected error")
	}
	if mon.err == nil {
		t.Fatalf("error not captured")
	}
	if mon.tags["topic"] != "alerts/nagpur" || mon.tags["module"] != "mqtt" {
		t.Fatalf("tags not set: %v", mon.tags)
	}
}

func TestLWTConfigured(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := NewNotifier(Config{Broker: "tcp://localhost:1883", LWTTopic: "hydroalert/status", LWTPayload: "offline"})
	if err != nil {
		t.Fatalf("notifier: %v", err)
	}
	if !mc.opts.WillEnabled || mc.opts.WillTopic != "hydroalert/status" || string(mc.opts.WillPayload) != "offline" {
		t.Fatalf("will options incorrect")
	}
	n.Close()
	if mc.disconnects != 1 {
		t.Fatalf("expected disconnect")
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected missing broker error")
	}
	if err := (Config{Broker: "tcp://x:1883", QoS: 3}).Validate(); err == nil {
		t.Fatalf("expected qos error")
	}
	if _, err := NewClientOptions(Config{Broker: "tcp://x:1883", UseTLS: true}); err == nil {
		t.Fatalf("expected tls error without files")
	}
}

func TestRegisteredInFactory(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	n, err := alert.NewNotifier([]factory.ModuleConfig{{Type: "mqtt", Conf: map[string]any{"broker": "tcp://localhost:1883", "topic": "t"}}})
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, ok := n.(*Notifier); !ok {
		t.Fatalf("expected *Notifier, got %T", n)
	}
}
