package api

import (
	"math"
	"net/http"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/dispatch"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/route"
)

// Dispatch actions accepted by POST /api/dispatch.
const (
	actionOptimizeRoute = "optimize_route"
	actionManual        = "manual"
	actionComplete      = "complete_dispatch"
	actionAutoAssign    = "auto_assign"
)

// dispatchRequest keeps the camelCase payload keys of the dashboard client.
type dispatchRequest struct {
	Action  string `json:"action"`
	Payload struct {
		TankerID   string   `json:"tankerId"`
		TankerIDs  []string `json:"tankerIds"`
		VillageID  string   `json:"villageId"`
		VillageIDs []string `json:"villageIds"`
		DispatchID string   `json:"dispatchId"`
		Stops      int      `json:"stops"`
	} `json:"payload"`
}

type routeResponse struct {
	envelope
	RouteID         string              `json:"routeId"`
	TankerID        string              `json:"tankerId"`
	Route           []model.Village     `json:"route"`
	TotalDistanceKm float64             `json:"totalDistanceKm"`
	DispatchLogs    []model.DispatchLog `json:"dispatchLogs"`
}

func newRouteResponse(res dispatch.Result) routeResponse {
	stops := make([]model.Village, len(res.Plan.Stops))
	for i, s := range res.Plan.Stops {
		stops[i] = s.Village
	}
	return routeResponse{
		envelope:        okEnvelope,
		RouteID:         res.RouteID,
		TankerID:        res.TankerID,
		Route:           stops,
		TotalDistanceKm: math.Round(res.Plan.TotalDistanceKm),
		DispatchLogs:    nonNil(res.Logs),
	}
}

func (a *API) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	p := req.Payload
	ctx := r.Context()
	switch req.Action {
	case actionOptimizeRoute:
		res, err := a.eng.Dispatch(ctx, p.TankerID, p.VillageIDs)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newRouteResponse(res))
	case actionAutoAssign:
		res, err := a.eng.AutoAssign(ctx, p.Stops)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newRouteResponse(res))
	case actionManual:
		logs, err := a.eng.ManualDispatch(ctx, p.TankerIDs, p.VillageID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			envelope
			DispatchLogs []model.DispatchLog `json:"dispatchLogs"`
		}{okEnvelope, logs})
	case actionComplete:
		l, err := a.eng.CompleteDispatch(ctx, p.DispatchID)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			envelope
			Dispatch model.DispatchLog `json:"dispatch"`
		}{okEnvelope, l})
	default:
		a.fail(w, r, apperr.Validation("dispatch", "Unknown action %q", req.Action))
	}
}

func (a *API) handlePlanRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TankerID   string   `json:"tanker_id"`
		VillageIDs []string `json:"village_ids"`
	}
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	plan, err := a.eng.PlanRoute(r.Context(), req.TankerID, req.VillageIDs)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		route.Plan
		// Rounded to whole kilometres; legs keep full precision.
		TotalDistanceKm float64 `json:"total_distance_km"`
	}{okEnvelope, plan, math.Round(plan.TotalDistanceKm)})
}
