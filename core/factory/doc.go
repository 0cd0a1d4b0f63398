// Package factory provides a small generic registry used to build modules
// from configuration. A module is described by a type string and a map of
// raw settings; its factory decodes the settings into a typed struct and
// returns the implementation.
//
// Alert notifiers and metrics sinks are both built this way:
//
//	reg := factory.NewRegistry[alert.Notifier]()
//	_ = reg.Register("webhook", func(conf map[string]any) (alert.Notifier, error) {
//	    var c webhook.Config
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return webhook.New(c, log)
//	})
//	n, err := reg.Create(factory.ModuleConfig{Type: "webhook", Conf: map[string]any{"url": "https://hooks.example"}})
package factory
