package dispatch

import (
	"context"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/priority"
	"github.com/kilianp07/hydroalert/core/store"
)

// AutoAssign routes the first Available tanker through the stops highest
// priority villages. A non-positive stops uses the configured count. When a
// candidate tanker is taken concurrently the next one is tried.
func (o *Orchestrator) AutoAssign(ctx context.Context, stops int) (Result, error) {
	if stops <= 0 {
		stops = o.cfg.Route.AutoAssignStops
	}
	villages, err := o.store.ListVillages(ctx, store.VillageFilter{})
	if err != nil {
		return Result{}, o.fail(opAuto, err, nil)
	}
	if len(villages) == 0 {
		return Result{}, apperr.Validation(opAuto, "no villages registered")
	}
	ranked := priority.Rank(villages, o.cfg.Priority)
	if len(ranked) > stops {
		ranked = ranked[:stops]
	}
	targets := make([]string, len(ranked))
	for i, r := range ranked {
		targets[i] = r.Village.ID
	}

	available := model.TankerAvailable
	tankers, err := o.store.ListTankers(ctx, store.TankerFilter{Status: &available})
	if err != nil {
		return Result{}, o.fail(opAuto, err, nil)
	}
	for _, t := range tankers {
		res, err := o.Dispatch(ctx, t.ID, targets)
		if apperr.KindOf(err) == apperr.KindConflict {
			continue
		}
		return res, err
	}
	return Result{}, o.fail(opAuto, apperr.Conflict(opAuto, "no available tanker"), nil)
}
