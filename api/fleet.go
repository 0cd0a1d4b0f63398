package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/priority"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/core/summary"
	"github.com/kilianp07/hydroalert/pkg/export"
)

func (a *API) handleVillages(w http.ResponseWriter, r *http.Request) {
	v, err := a.eng.Villages(r.Context(), r.URL.Query().Get("district"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Villages []model.Village `json:"villages"`
	}{okEnvelope, nonNil(v)})
}

func (a *API) handlePriorities(w http.ResponseWriter, r *http.Request) {
	ranked, err := a.eng.Priorities(r.Context(), r.URL.Query().Get("district"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Villages []priority.Ranked `json:"villages"`
	}{okEnvelope, nonNil(ranked)})
}

func (a *API) handleCritical(w http.ResponseWriter, r *http.Request) {
	crit, err := a.eng.CriticalVillages(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Alerts []alert.Payload `json:"alerts"`
	}{okEnvelope, nonNil(crit)})
}

func (a *API) handleVillagePriority(w http.ResponseWriter, r *http.Request) {
	res, err := a.eng.ScorePriority(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		priority.Result
	}{okEnvelope, res})
}

func (a *API) handleTankers(w http.ResponseWriter, r *http.Request) {
	var status *model.TankerStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := model.ParseTankerStatus(s)
		if err != nil {
			a.fail(w, r, apperr.Validation("list tankers", "%v", err))
			return
		}
		status = &st
	}
	t, err := a.eng.Tankers(r.Context(), status)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Tankers []model.Tanker `json:"tankers"`
	}{okEnvelope, nonNil(t)})
}

func (a *API) handleMaintenance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Enabled == nil {
		a.fail(w, r, apperr.Validation("set maintenance", "enabled is required"))
		return
	}
	t, err := a.eng.SetMaintenance(r.Context(), chi.URLParam(r, "id"), *req.Enabled)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Tanker model.Tanker `json:"tanker"`
	}{okEnvelope, t})
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	s, err := a.eng.Summary(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		summary.Snapshot
	}{okEnvelope, s})
}

func (a *API) handleDispatchLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.DispatchLogFilter{TankerID: q.Get("tanker_id"), VillageID: q.Get("village_id")}
	if s := q.Get("status"); s != "" {
		st, err := model.ParseDispatchStatus(s)
		if err != nil {
			a.fail(w, r, apperr.Validation("list dispatch logs", "%v", err))
			return
		}
		f.Status = &st
	}
	logs, err := a.eng.DispatchLogs(r.Context(), f)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if q.Get("format") == export.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="dispatch_logs.csv"`)
		if err := export.WriteCSV(w, logs); err != nil {
			a.log.Errorw("csv export failed", err, nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Logs []model.DispatchLog `json:"logs"`
	}{okEnvelope, nonNil(logs)})
}

// nonNil renders empty collections as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
