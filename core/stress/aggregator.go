package stress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/events"
	"github.com/kilianp07/hydroalert/core/logger"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/monitoring"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/internal/eventbus"
)

// Delta reports the WSI change of one village.
type Delta struct {
	VillageID string  `json:"village_id"`
	Village   string  `json:"village"`
	OldWSI    float64 `json:"old_wsi"`
	NewWSI    float64 `json:"new_wsi"`
}

// Aggregator recomputes and persists the WSI of every village. It is the
// only component writing the village WSI.
type Aggregator struct {
	villages store.VillageStore
	records  store.EnvironmentStore
	cfg      Config
	log      logger.Logger
	bus      eventbus.Publisher[events.StressEvent]
	now      func() time.Time
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithClock overrides the time source used for update timestamps.
func WithClock(now func() time.Time) Option { return func(a *Aggregator) { a.now = now } }

// WithPublisher publishes a StressEvent per updated village.
func WithPublisher(p eventbus.Publisher[events.StressEvent]) Option {
	return func(a *Aggregator) { a.bus = p }
}

// NewAggregator creates an Aggregator. cfg defaults are applied.
func NewAggregator(villages store.VillageStore, records store.EnvironmentStore, cfg Config, log logger.Logger, opts ...Option) (*Aggregator, error) {
	if villages == nil || records == nil || log == nil {
		return nil, fmt.Errorf("stress: nil parameter provided to NewAggregator")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("stress: %w", err)
	}
	a := &Aggregator{
		villages: villages,
		records:  records,
		cfg:      cfg,
		log:      log,
		bus:      eventbus.Nop[events.StressEvent]{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Weights returns the weights the aggregator scores with.
func (a *Aggregator) Weights() Weights { return a.cfg.Weights }

// Run refreshes every village and returns the deltas of the villages that
// were updated, in listing order. A village whose records cannot be read or
// whose score cannot be written is logged and skipped; only a failure to list
// the villages fails the batch.
func (a *Aggregator) Run(ctx context.Context) ([]Delta, error) {
	start := time.Now()
	villages, err := a.villages.ListVillages(ctx, store.VillageFilter{})
	if err != nil {
		return nil, apperr.Upstream("stress batch", err)
	}

	results := make([]*Delta, len(villages))
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed int
	)
	g.SetLimit(a.cfg.Workers)
	for i, v := range villages {
		i, v := i, v
		g.Go(func() error {
			d, stage, err := a.refresh(ctx, v)
			if err != nil {
				villageFailures.WithLabelValues(stage).Inc()
				a.log.Errorw("stress refresh failed", err, map[string]any{"village_id": v.ID, "village": v.Name, "stage": stage})
				monitoring.CaptureUpstream("stress batch", err, map[string]string{"village_id": v.ID, "stage": stage})
				mu.Lock()
				failed++
				mu.Unlock()
				return nil
			}
			results[i] = &d
			return nil
		})
	}
	_ = g.Wait()

	deltas := make([]Delta, 0, len(villages))
	for _, d := range results {
		if d != nil {
			deltas = append(deltas, *d)
		}
	}
	batchDuration.Observe(time.Since(start).Seconds())
	villagesUpdated.Add(float64(len(deltas)))
	a.log.Infof("stress batch updated %d of %d villages (%d failed)", len(deltas), len(villages), failed)
	return deltas, nil
}

func (a *Aggregator) refresh(ctx context.Context, v model.Village) (Delta, string, error) {
	recs, err := a.records.RecentEnvironmentalRecords(ctx, v.ID, a.cfg.HistoryLimit)
	if err != nil {
		return Delta{}, "fetch", apperr.Upstream("fetch environmental records", err)
	}
	wsi := ComputeWSI(v, recs, a.cfg.Weights)
	if err := a.write(ctx, v, wsi); err != nil {
		return Delta{}, "write", err
	}
	return Delta{VillageID: v.ID, Village: v.Name, OldWSI: v.WSI, NewWSI: wsi}, "", nil
}

func (a *Aggregator) write(ctx context.Context, v model.Village, wsi float64) error {
	at := a.now()
	if err := a.villages.UpdateVillageWSI(ctx, v.ID, wsi, at); err != nil {
		return apperr.Upstream("update village wsi", err)
	}
	a.bus.Publish(events.StressEvent{VillageID: v.ID, Village: v.Name, OldWSI: v.WSI, NewWSI: wsi, Time: at})
	return nil
}

// SimulateDrought forces the least stressed village to wsi (the configured
// simulation score when wsi is not positive) and returns the resulting delta.
// It is used to exercise the alert path end to end.
func (a *Aggregator) SimulateDrought(ctx context.Context, wsi float64) (Delta, error) {
	if wsi <= 0 {
		wsi = a.cfg.SimulateWSI
	}
	wsi = model.ClampWSI(wsi)
	villages, err := a.villages.ListVillages(ctx, store.VillageFilter{})
	if err != nil {
		return Delta{}, apperr.Upstream("simulate drought", err)
	}
	if len(villages) == 0 {
		return Delta{}, apperr.Validation("simulate drought", "no villages registered")
	}
	target := villages[0]
	for _, v := range villages[1:] {
		if v.WSI < target.WSI {
			target = v
		}
	}
	if err := a.write(ctx, target, wsi); err != nil {
		return Delta{}, err
	}
	a.log.Warnf("simulated drought on %s: wsi %.2f -> %.2f", target.Name, target.WSI, wsi)
	return Delta{VillageID: target.ID, Village: target.Name, OldWSI: target.WSI, NewWSI: wsi}, nil
}
