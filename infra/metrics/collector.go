package metrics

import (
	"context"
	"sync"

	"github.com/kilianp07/hydroalert/core/events"
	coremetrics "github.com/kilianp07/hydroalert/core/metrics"
	"github.com/kilianp07/hydroalert/infra/logger"
	"github.com/kilianp07/hydroalert/internal/eventbus"
)

// Sources are the buses the collector listens to. Nil buses are skipped.
type Sources struct {
	Stress   *eventbus.Bus[events.StressEvent]
	Dispatch *eventbus.Bus[events.DispatchEvent]
	Alerts   *eventbus.Bus[events.AlertEvent]
}

// StartEventCollector subscribes to the buses and forwards events to sink.
// It stops when the context is canceled or the buses are closed; the
// returned function waits for the forwarding goroutines to exit.
func StartEventCollector(ctx context.Context, src Sources, sink coremetrics.MetricsSink, log logger.Logger) (wait func()) {
	var wg sync.WaitGroup
	if sink == nil {
		return wg.Wait
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if src.Stress != nil {
		forward(ctx, &wg, src.Stress, func(e events.StressEvent) error {
			return sink.RecordStress([]coremetrics.StressSample{{
				VillageID: e.VillageID, Village: e.Village, OldWSI: e.OldWSI, NewWSI: e.NewWSI, Time: e.Time,
			}})
		}, log)
	}
	if r, ok := sink.(coremetrics.DispatchRecorder); ok && src.Dispatch != nil {
		forward(ctx, &wg, src.Dispatch, func(e events.DispatchEvent) error {
			return r.RecordDispatch(coremetrics.DispatchSample{
				Action: string(e.Action), LogID: e.LogID, TankerID: e.TankerID, VillageID: e.VillageID, Time: e.Time,
			})
		}, log)
	}
	if r, ok := sink.(coremetrics.AlertRecorder); ok && src.Alerts != nil {
		forward(ctx, &wg, src.Alerts, func(e events.AlertEvent) error {
			s := coremetrics.AlertSample{Villages: e.Villages, Sent: e.Sent, Time: e.Time}
			if e.Err != nil {
				s.Error = e.Err.Error()
			}
			return r.RecordAlert(s)
		}, log)
	}
	return wg.Wait
}

func forward[T any](ctx context.Context, wg *sync.WaitGroup, bus *eventbus.Bus[T], record func(T) error, log logger.Logger) {
	sub := bus.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(ev); err != nil {
					log.Warnf("metrics sink: %v", err)
				}
			}
		}
	}()
}
