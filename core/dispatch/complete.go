package dispatch

import (
	"context"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/events"
	"github.com/kilianp07/hydroalert/core/model"
)

// CompleteDispatch marks a Pending log Delivered. The owning tanker returns
// to Available only when it has no Pending log left.
func (o *Orchestrator) CompleteDispatch(ctx context.Context, logID string) (model.DispatchLog, error) {
	l, err := o.complete(ctx, logID)
	entry := audit.Entry{Op: opComplete, LogIDs: []string{logID}}
	if l.TankerID != "" {
		entry.TankerIDs = []string{l.TankerID}
		entry.VillageIDs = []string{l.VillageID}
	}
	o.record(ctx, entry, err)
	return l, err
}

func (o *Orchestrator) complete(ctx context.Context, logID string) (model.DispatchLog, error) {
	if logID == "" {
		return model.DispatchLog{}, apperr.Validation(opComplete, "dispatch log id is required")
	}
	tags := map[string]string{"log_id": logID}
	current, err := o.store.GetDispatchLog(ctx, logID)
	if err != nil {
		return model.DispatchLog{}, o.fail(opComplete, err, tags)
	}
	tags["tanker_id"] = current.TankerID

	unlock := o.locks.Lock(current.TankerID)
	defer unlock()

	delivered, err := o.store.MarkDelivered(ctx, logID, o.now())
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			o.publish(events.ActionConflict, logID, current.TankerID, current.VillageID)
		}
		return current, o.fail(opComplete, err, tags)
	}
	deliveries.Inc()
	o.publish(events.ActionDelivered, delivered.ID, delivered.TankerID, delivered.VillageID)

	pending, err := o.store.CountPending(ctx, delivered.TankerID)
	if err != nil {
		return delivered, o.fail(opComplete, err, tags)
	}
	if pending > 0 {
		o.log.Debugw("tanker keeps pending stops", map[string]any{"tanker_id": delivered.TankerID, "pending": pending})
		return delivered, nil
	}
	err = o.store.TransitionTanker(ctx, delivered.TankerID, model.TankerEnRoute, model.TankerAvailable)
	switch {
	case err == nil:
		tankerReleases.Inc()
		o.publish(events.ActionTankerFreed, delivered.ID, delivered.TankerID, delivered.VillageID)
		o.log.Infof("tanker %s available after delivering %s", delivered.TankerID, delivered.ID)
	case apperr.KindOf(err) == apperr.KindConflict:
		// The tanker was moved out of En_Route externally (e.g. Maintenance).
		o.log.Warnf("tanker %s not released: %v", delivered.TankerID, err)
	default:
		return delivered, o.fail(opComplete, err, tags)
	}
	return delivered, nil
}
