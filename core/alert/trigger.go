// Package alert decides which stress batch results warrant a notification
// and hands the resulting payloads to a Notifier.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/events"
	"github.com/kilianp07/hydroalert/core/factory"
	"github.com/kilianp07/hydroalert/core/logger"
	"github.com/kilianp07/hydroalert/core/stress"
	"github.com/kilianp07/hydroalert/internal/eventbus"
)

// Config defines alerting settings.
type Config struct {
	// Threshold is exclusive: only a WSI strictly above it alerts.
	Threshold float64                `json:"threshold"`
	Notifiers []factory.ModuleConfig `json:"notifiers"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Threshold == 0 {
		c.Threshold = 80
	}
}

// Validate checks the threshold range.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("alert: threshold %v out of [0,100]", c.Threshold)
	}
	return nil
}

// Report is the outcome of an evaluation.
type Report struct {
	Alerts []Payload `json:"alerts"`
	Sent   bool      `json:"sent"`
}

var notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "alert_notifications_total",
	Help: "Alert notifications by result",
}, []string{"result"})

func init() {
	prometheus.MustRegister(notifications)
}

// Trigger owns the threshold decision.
type Trigger struct {
	threshold float64
	notifier  Notifier
	log       logger.Logger
	bus       eventbus.Publisher[events.AlertEvent]
	now       func() time.Time
}

// NewTrigger creates a Trigger. A nil notifier drops alerts and a nil bus
// publishes nothing.
func NewTrigger(cfg Config, n Notifier, log logger.Logger, bus eventbus.Publisher[events.AlertEvent]) *Trigger {
	cfg.SetDefaults()
	if n == nil {
		n = NopNotifier{}
	}
	if bus == nil {
		bus = eventbus.Nop[events.AlertEvent]{}
	}
	return &Trigger{threshold: cfg.Threshold, notifier: n, log: log, bus: bus, now: time.Now}
}

// Threshold returns the exclusive alert threshold.
func (t *Trigger) Threshold() float64 { return t.threshold }

// Select returns a payload for every delta whose new WSI is strictly above
// the threshold, in delta order.
func (t *Trigger) Select(deltas []stress.Delta) []Payload {
	var out []Payload
	for _, d := range deltas {
		if d.NewWSI > t.threshold {
			out = append(out, Payload{VillageID: d.VillageID, Village: d.Village, WSI: d.NewWSI})
		}
	}
	return out
}

// Evaluate selects the critical deltas and notifies them. Nothing is sent
// when no delta crosses the threshold. A delivery failure is returned as an
// upstream error together with the selected alerts.
func (t *Trigger) Evaluate(ctx context.Context, deltas []stress.Delta) (Report, error) {
	alerts := t.Select(deltas)
	if len(alerts) == 0 {
		return Report{}, nil
	}
	rep := Report{Alerts: alerts}
	names := make([]string, len(alerts))
	for i, a := range alerts {
		names[i] = a.Village
	}
	err := t.notifier.Notify(ctx, Render(alerts, t.threshold))
	t.bus.Publish(events.AlertEvent{Villages: names, Sent: err == nil, Err: err, Time: t.now()})
	if err != nil {
		notifications.WithLabelValues("failure").Inc()
		t.log.Errorw("alert notification failed", err, map[string]any{"villages": names})
		return rep, apperr.Upstream("notify", err)
	}
	notifications.WithLabelValues("success").Inc()
	t.log.Infof("alert sent for %d village(s)", len(alerts))
	rep.Sent = true
	return rep, nil
}
