// Package notify registers the notifiers that need no external service.
// Transport-backed notifiers live in sub packages (webhook) and in infra/mqtt.
package notify

import (
	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/factory"
	"github.com/kilianp07/hydroalert/infra/logger"
)

func init() {
	_ = alert.RegisterNotifier("log", func(conf map[string]any) (alert.Notifier, error) {
		var c struct {
			Component string `json:"component"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Component == "" {
			c.Component = "alert"
		}
		return alert.NewLogNotifier(logger.New(c.Component)), nil
	})
}
