package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/hydroalert/core/factory"
	"github.com/kilianp07/hydroalert/core/logger"
)

// Notifier delivers alert messages. Implementations own delivery only.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, msg Message) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

// NopNotifier drops every message.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Message) error { return nil }

// MultiNotifier sends to every notifier and joins their errors.
type MultiNotifier struct {
	Notifiers []Notifier
}

// NewMultiNotifier creates a MultiNotifier.
func NewMultiNotifier(n ...Notifier) *MultiNotifier { return &MultiNotifier{Notifiers: n} }

// Notify implements Notifier. Every notifier is attempted even when an
// earlier one fails.
func (m *MultiNotifier) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for i, n := range m.Notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the application log.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier { return &LogNotifier{log: log} }

// Notify implements Notifier.
func (l *LogNotifier) Notify(_ context.Context, msg Message) error {
	for _, p := range msg.Villages {
		l.log.Warnf("%s: %s wsi=%.2f", msg.Subject, p.Village, p.WSI)
	}
	return nil
}

var notifierRegistry = factory.NewRegistry[Notifier]()

// RegisterNotifier adds a notifier factory identified by name.
func RegisterNotifier(name string, f factory.Factory[Notifier]) error {
	return notifierRegistry.Register(name, f)
}

// NewNotifier builds the configured notifiers. No configuration yields a
// NopNotifier and several yield a MultiNotifier.
func NewNotifier(cfgs []factory.ModuleConfig) (Notifier, error) {
	switch len(cfgs) {
	case 0:
		return NopNotifier{}, nil
	case 1:
		return notifierRegistry.Create(cfgs[0])
	}
	m := NewMultiNotifier()
	for i, c := range cfgs {
		n, err := notifierRegistry.Create(c)
		if err != nil {
			return nil, fmt.Errorf("notifier %d: %w", i, err)
		}
		m.Notifiers = append(m.Notifiers, n)
	}
	return m, nil
}
