package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kilianp07/hydroalert/app"
	"github.com/kilianp07/hydroalert/core/stress"
)

func (a *API) handleStressRun(w http.ResponseWriter, r *http.Request) {
	rep, err := a.eng.RunStressBatch(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		app.BatchReport
	}{okEnvelope, rep})
}

func (a *API) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WSI float64 `json:"wsi"`
	}
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	rep, err := a.eng.SimulateDrought(r.Context(), req.WSI)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Village string  `json:"village"`
		WSI     float64 `json:"wsi"`
		app.SimulationReport
	}{okEnvelope, rep.Delta.Village, rep.Delta.NewWSI, rep})
}

func (a *API) handleVillageWSI(w http.ResponseWriter, r *http.Request) {
	f, err := a.eng.ComputeWSI(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Factors stress.Factors `json:"factors"`
	}{okEnvelope, f})
}
