package api

import (
	"net/http"
	"time"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
)

// handleAudit serves GET /api/audit. Query parameters: start and end
// (RFC3339), op and tanker_id.
func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := audit.Query{Op: r.URL.Query().Get("op"), TankerID: r.URL.Query().Get("tanker_id")}
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &q.Start}, {"end", &q.End}} {
		s := r.URL.Query().Get(p.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			a.fail(w, r, apperr.Validation("audit log", "%s: %v", p.name, err))
			return
		}
		*p.dst = t
	}
	entries, err := a.eng.AuditLog(r.Context(), q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		envelope
		Entries []audit.Entry `json:"entries"`
	}{okEnvelope, nonNil(entries)})
}
