package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/hydroalert/config"
	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/infra/logger"
	"github.com/kilianp07/hydroalert/infra/mqtt"
	"github.com/kilianp07/hydroalert/infra/store/postgres"
	"github.com/kilianp07/hydroalert/infra/store/sqlite"

	// Notifier and metrics sink registrations.
	_ "github.com/kilianp07/hydroalert/infra/metrics"
	_ "github.com/kilianp07/hydroalert/infra/notify"
	_ "github.com/kilianp07/hydroalert/infra/notify/webhook"
)

// Open builds an Engine with the store, notifiers and journal described by
// cfg, then imports the seed dataset when one is configured.
func Open(ctx context.Context, cfg config.Config) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	log := logger.New("engine")

	st, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	var closers []func() error
	fail := func(err error) (*Engine, error) {
		_ = st.Close()
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	notifier, nclose, err := buildNotifier(cfg)
	if err != nil {
		return fail(fmt.Errorf("notifier: %w", err))
	}
	closers = append(closers, nclose...)

	journal, err := audit.New(cfg.Audit)
	if err != nil {
		return fail(fmt.Errorf("audit journal: %w", err))
	}

	e, err := New(cfg, Deps{Store: st, Notifier: notifier, Journal: journal, Log: log})
	if err != nil {
		_ = journal.Close()
		return fail(err)
	}
	e.closers = closers

	if cfg.Store.Seed != "" {
		ds, err := LoadDataset(cfg.Store.Seed)
		if err != nil {
			_ = e.Close()
			return nil, err
		}
		rep, err := e.Import(ctx, ds)
		if err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("seed %s: %w", cfg.Store.Seed, err)
		}
		log.Infof("seeded %d village(s), %d tanker(s), %d record(s), %d skipped",
			rep.Villages, rep.Tankers, rep.Records, rep.Skipped)
	}
	return e, nil
}

// OpenStore connects the configured record store backend.
func OpenStore(ctx context.Context, cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Backend {
	case config.StoreMemory, "":
		return store.NewMemoryStore(), nil
	case config.StoreSQLite:
		s, err := sqlite.Open(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		return s, nil
	case config.StorePostgres:
		s, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// buildNotifier combines the registry notifiers with the MQTT section. The
// returned closers release broker connections.
func buildNotifier(cfg config.Config) (alert.Notifier, []func() error, error) {
	n, err := alert.NewNotifier(cfg.Alert.Notifiers)
	if err != nil {
		return nil, nil, err
	}
	closers := closersOf(n)
	if cfg.MQTT.Broker == "" {
		return n, closers, nil
	}
	m, err := mqtt.NewNotifier(cfg.MQTT)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, nil, fmt.Errorf("mqtt: %w", err)
	}
	closers = append(closers, func() error { m.Close(); return nil })
	if len(cfg.Alert.Notifiers) == 0 {
		return m, closers, nil
	}
	return alert.NewMultiNotifier(n, m), closers, nil
}

func closersOf(n alert.Notifier) []func() error {
	switch v := n.(type) {
	case *alert.MultiNotifier:
		var out []func() error
		for _, c := range v.Notifiers {
			out = append(out, closersOf(c)...)
		}
		return out
	case interface{ Close() }:
		return []func() error{func() error { v.Close(); return nil }}
	case interface{ Close() error }:
		return []func() error{v.Close}
	}
	return nil
}
