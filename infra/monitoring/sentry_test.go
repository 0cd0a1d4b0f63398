package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/kilianp07/hydroalert/config"
	coremon "github.com/kilianp07/hydroalert/core/monitoring"
)

type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (c *captureTransport) Configure(sentry.ClientOptions) {}
func (c *captureTransport) SendEvent(e *sentry.Event) {
	c.mu.Lock()
	c.events = append(c.events, e)
	c.mu.Unlock()
}
func (c *captureTransport) Flush(time.Duration) bool { return true }
func (c *captureTransport) Close()                   {}

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestSentryMonitorCapturesTags(t *testing.T) {
	tr := &captureTransport{}
	m, err := newSentryMonitor(config.SentryConfig{DSN: "https://public@sentry.example.com/1", Environment: "test"}, tr)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	m.CaptureException(errors.New("store unreachable"), map[string]string{"op": "dispatch", "tanker_id": "t1"})
	m.CaptureException(nil, nil)
	m.Flush(time.Second)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(tr.events))
	}
	ev := tr.events[0]
	if ev.Tags["op"] != "dispatch" || ev.Tags["tanker_id"] != "t1" {
		t.Fatalf("tags not set: %v", ev.Tags)
	}
	if ev.Environment != "test" {
		t.Fatalf("unexpected environment %q", ev.Environment)
	}
}
