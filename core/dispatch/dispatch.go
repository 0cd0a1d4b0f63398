package dispatch

import (
	"context"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/events"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/route"
	"github.com/kilianp07/hydroalert/core/store"
)

const (
	opDispatch = "dispatch"
	opManual   = "manual_dispatch"
	opComplete = "complete_dispatch"
	opAuto     = "auto_assign"
)

// Dispatch sends an Available tanker on a planned route through villageIDs
// and creates one Pending log per stop.
//
// The tanker is moved to En_Route before any log is written. If the first
// log cannot be written the tanker is moved back; if a later one fails the
// logs already written are kept and returned with the error.
func (o *Orchestrator) Dispatch(ctx context.Context, tankerID string, villageIDs []string) (Result, error) {
	entry := audit.Entry{Op: opDispatch, TankerIDs: []string{tankerID}, VillageIDs: villageIDs}
	res, err := o.dispatch(ctx, tankerID, villageIDs)
	entry.RouteID = res.RouteID
	entry.LogIDs = logIDs(res.Logs)
	o.record(ctx, entry, err)
	return res, err
}

func (o *Orchestrator) dispatch(ctx context.Context, tankerID string, villageIDs []string) (Result, error) {
	if tankerID == "" {
		return Result{}, apperr.Validation(opDispatch, "tanker id is required")
	}
	if err := checkIDs(opDispatch, "village", villageIDs); err != nil {
		return Result{}, err
	}
	tags := map[string]string{"tanker_id": tankerID}

	unlock := o.locks.Lock(tankerID)
	defer unlock()

	tanker, err := o.store.GetTanker(ctx, tankerID)
	if err != nil {
		return Result{}, o.fail(opDispatch, err, tags)
	}
	if tanker.Status != model.TankerAvailable {
		o.publish(events.ActionConflict, "", tankerID, "")
		return Result{}, o.fail(opDispatch, apperr.Conflict(opDispatch, "tanker %q is %s", tankerID, tanker.Status), tags)
	}
	villages, err := o.villagesInOrder(ctx, villageIDs)
	if err != nil {
		return Result{}, o.fail(opDispatch, err, tags)
	}

	plan := o.planner.Plan(route.Origin(tanker, o.cfg.Route.Depot), villages)
	res := Result{RouteID: o.newID(), TankerID: tankerID, Plan: plan}

	if err := o.store.TransitionTanker(ctx, tankerID, model.TankerAvailable, model.TankerEnRoute); err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			o.publish(events.ActionConflict, "", tankerID, "")
		}
		return Result{}, o.fail(opDispatch, err, tags)
	}

	departure := o.now()
	for i, stop := range plan.Stops {
		l := model.DispatchLog{
			ID:               o.newID(),
			TankerID:         tankerID,
			VillageID:        stop.Village.ID,
			RouteID:          res.RouteID,
			Status:           model.DispatchPending,
			DispatchedAt:     departure,
			EstimatedArrival: o.schedule.Arrival(departure, i),
			Notes:            o.cfg.RouteNotes,
		}
		if err := o.store.InsertDispatchLog(ctx, l); err != nil {
			if len(res.Logs) == 0 {
				o.revert(ctx, opDispatch, tankerID)
			}
			tags["village_id"] = stop.Village.ID
			return res, o.fail(opDispatch, err, tags)
		}
		res.Logs = append(res.Logs, l)
		logsCreated.WithLabelValues("route").Inc()
		o.publish(events.ActionLogCreated, l.ID, tankerID, l.VillageID)
	}
	o.log.Infof("tanker %s dispatched on route %s: %d stops, %.1f km", tankerID, res.RouteID, len(res.Logs), plan.TotalDistanceKm)
	return res, nil
}

// villagesInOrder loads the villages and returns them in the order of ids.
func (o *Orchestrator) villagesInOrder(ctx context.Context, ids []string) ([]model.Village, error) {
	found, err := o.store.ListVillages(ctx, store.VillageFilter{IDs: ids})
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Village, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	out := make([]model.Village, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return nil, apperr.NotFound(opDispatch, "village", id)
		}
		out = append(out, v)
	}
	return out, nil
}

// ManualDispatch sends every tanker in tankerIDs to villageID without
// planning. All tankers must be Available; otherwise nothing changes.
// Each tanker gets one Pending log with the first ETA slot.
func (o *Orchestrator) ManualDispatch(ctx context.Context, tankerIDs []string, villageID string) ([]model.DispatchLog, error) {
	logs, err := o.manualDispatch(ctx, tankerIDs, villageID)
	o.record(ctx, audit.Entry{Op: opManual, TankerIDs: tankerIDs, VillageIDs: []string{villageID}, LogIDs: logIDs(logs)}, err)
	return logs, err
}

func (o *Orchestrator) manualDispatch(ctx context.Context, tankerIDs []string, villageID string) ([]model.DispatchLog, error) {
	if villageID == "" {
		return nil, apperr.Validation(opManual, "village id is required")
	}
	if err := checkIDs(opManual, "tanker", tankerIDs); err != nil {
		return nil, err
	}
	tags := map[string]string{"village_id": villageID}

	unlock := o.locks.LockAll(tankerIDs)
	defer unlock()

	if _, err := o.store.GetVillage(ctx, villageID); err != nil {
		return nil, o.fail(opManual, err, tags)
	}
	for _, id := range tankerIDs {
		t, err := o.store.GetTanker(ctx, id)
		if err != nil {
			return nil, o.fail(opManual, err, tags)
		}
		if t.Status != model.TankerAvailable {
			o.publish(events.ActionConflict, "", id, villageID)
			return nil, o.fail(opManual, apperr.Conflict(opManual, "tanker %q is %s", id, t.Status), tags)
		}
	}

	moved := make([]string, 0, len(tankerIDs))
	for _, id := range tankerIDs {
		if err := o.store.TransitionTanker(ctx, id, model.TankerAvailable, model.TankerEnRoute); err != nil {
			for _, m := range moved {
				o.revert(ctx, opManual, m)
			}
			if apperr.KindOf(err) == apperr.KindConflict {
				o.publish(events.ActionConflict, "", id, villageID)
			}
			return nil, o.fail(opManual, err, tags)
		}
		moved = append(moved, id)
	}

	departure := o.now()
	eta := o.schedule.Arrival(departure, 0)
	logs := make([]model.DispatchLog, 0, len(tankerIDs))
	for i, id := range tankerIDs {
		l := model.DispatchLog{
			ID:               o.newID(),
			TankerID:         id,
			VillageID:        villageID,
			Status:           model.DispatchPending,
			DispatchedAt:     departure,
			EstimatedArrival: eta,
			Notes:            o.cfg.ManualNotes,
		}
		if err := o.store.InsertDispatchLog(ctx, l); err != nil {
			for _, rest := range tankerIDs[i:] {
				o.revert(ctx, opManual, rest)
			}
			tags["tanker_id"] = id
			return logs, o.fail(opManual, err, tags)
		}
		logs = append(logs, l)
		logsCreated.WithLabelValues("manual").Inc()
		o.publish(events.ActionLogCreated, l.ID, id, villageID)
	}
	o.log.Infof("manual dispatch of %d tanker(s) to village %s", len(logs), villageID)
	return logs, nil
}

func logIDs(logs []model.DispatchLog) []string {
	if len(logs) == 0 {
		return nil
	}
	ids := make([]string, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
	}
	return ids
}
