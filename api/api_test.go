package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hydroalert/app"
	"github.com/kilianp07/hydroalert/config"
	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/summary"
	"github.com/kilianp07/hydroalert/infra/logger"
)

func newTestEngine(t *testing.T) *app.Engine {
	t.Helper()
	e, err := app.New(config.Config{}, app.Deps{Log: logger.NopLogger{}})
	require.NoError(t, err)
	_, err = e.Import(context.Background(), app.Dataset{
		Villages: []model.Village{
			{ID: "v-a", Name: "Amravati", Population: 200000, Location: model.Location{Lat: 21.20, Lng: 79.10}, WSI: 40},
			{ID: "v-b", Name: "Bhandara", Population: 10000, Location: model.Location{Lat: 21.50, Lng: 79.60}, WSI: 20},
		},
		Tankers: []model.Tanker{
			{ID: "t-1", Status: model.TankerAvailable},
			{ID: "t-2", Status: model.TankerMaintenance},
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, rec.Body.String(), err)
		}
	}
	return rec.Code, out
}

func TestDispatchActions(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "")

	code, out := do(t, h, http.MethodPost, "/api/dispatch",
		`{"action":"optimize_route","payload":{"tankerId":"t-1","villageIds":["v-b","v-a"]}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, true, out["success"])
	dist := out["totalDistanceKm"].(float64)
	assert.Equal(t, math.Round(dist), dist)
	stops := out["route"].([]any)
	require.Len(t, stops, 2)
	assert.Equal(t, "v-a", stops[0].(map[string]any)["id"])
	logs := out["dispatchLogs"].([]any)
	require.Len(t, logs, 2)

	code, out = do(t, h, http.MethodPost, "/api/dispatch",
		`{"action":"optimize_route","payload":{"tankerId":"t-1","villageIds":["v-a"]}}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, false, out["success"])
	assert.NotEmpty(t, out["error"])

	logID := logs[0].(map[string]any)["id"].(string)
	code, out = do(t, h, http.MethodPost, "/api/dispatch",
		`{"action":"complete_dispatch","payload":{"dispatchId":"`+logID+`"}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "Delivered", out["dispatch"].(map[string]any)["status"])

	code, _ = do(t, h, http.MethodPost, "/api/dispatch",
		`{"action":"complete_dispatch","payload":{"dispatchId":"`+logID+`"}}`)
	assert.Equal(t, http.StatusConflict, code)
}

func TestDispatchErrors(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "")
	tests := []struct {
		name string
		body string
		want int
	}{
		{"unknown action", `{"action":"teleport"}`, http.StatusBadRequest},
		{"invalid json", `{"action":`, http.StatusBadRequest},
		{"no villages", `{"action":"optimize_route","payload":{"tankerId":"t-1"}}`, http.StatusBadRequest},
		{"unknown tanker", `{"action":"optimize_route","payload":{"tankerId":"nope","villageIds":["v-a"]}}`, http.StatusNotFound},
		{"manual unknown village", `{"action":"manual","payload":{"tankerIds":["t-1"],"villageId":"nope"}}`, http.StatusNotFound},
		{"manual maintenance tanker", `{"action":"manual","payload":{"tankerIds":["t-2"],"villageId":"v-a"}}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out := do(t, h, http.MethodPost, "/api/dispatch", tt.body)
			assert.Equal(t, tt.want, code, out)
			assert.Equal(t, false, out["success"])
		})
	}
}

func TestAutoAssignAndManual(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "")

	code, out := do(t, h, http.MethodPost, "/api/dispatch", `{"action":"auto_assign","payload":{"stops":1}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "t-1", out["tankerId"])

	code, _ = do(t, h, http.MethodPost, "/api/tankers/t-2/maintenance", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, code)
	code, out = do(t, h, http.MethodPost, "/api/dispatch", `{"action":"manual","payload":{"tankerIds":["t-2"],"villageId":"v-b"}}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Len(t, out["dispatchLogs"], 1)

	code, out = do(t, h, http.MethodGet, "/api/dispatch/logs?status=Pending", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["logs"], 2)
	code, _ = do(t, h, http.MethodGet, "/api/dispatch/logs?status=Lost", "")
	assert.Equal(t, http.StatusBadRequest, code)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dispatch/logs?format=csv&tanker_id=t-2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], ",t-2,v-b,")
}

func TestStressEndpoints(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "")

	code, out := do(t, h, http.MethodPost, "/api/stress/run", "")
	require.Equal(t, http.StatusOK, code, out)
	assert.Len(t, out["deltas"], 2)
	assert.Len(t, out["alerts"], 1)

	code, out = do(t, h, http.MethodPost, "/api/stress/simulate", `{"wsi":92}`)
	require.Equal(t, http.StatusOK, code, out)
	assert.Equal(t, "Bhandara", out["village"])
	assert.Equal(t, 92.0, out["wsi"])

	code, out = do(t, h, http.MethodGet, "/api/villages/critical", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["alerts"], 2)

	code, out = do(t, h, http.MethodGet, "/api/villages/v-b/wsi", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 35.0, out["factors"].(map[string]any)["wsi"])
}

func TestReadEndpoints(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "")

	code, out := do(t, h, http.MethodGet, "/api/villages/priorities", "")
	require.Equal(t, http.StatusOK, code)
	ranked := out["villages"].([]any)
	require.Len(t, ranked, 2)
	assert.Equal(t, "v-a", ranked[0].(map[string]any)["village"].(map[string]any)["id"])

	code, out = do(t, h, http.MethodGet, "/api/villages/v-a/priority", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 58.0, out["priority_score"])

	code, _ = do(t, h, http.MethodGet, "/api/villages/nope/priority", "")
	assert.Equal(t, http.StatusNotFound, code)

	code, out = do(t, h, http.MethodGet, "/api/summary", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 30.0, out["average_wsi"])
	assert.Equal(t, 1.0, out["available_tankers"])

	code, out = do(t, h, http.MethodGet, "/api/tankers?status=Maintenance", "")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, out["tankers"], 1)
	code, _ = do(t, h, http.MethodGet, "/api/tankers?status=Flying", "")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, h, http.MethodPost, "/api/tankers/t-1/maintenance", `{}`)
	assert.Equal(t, http.StatusBadRequest, code)

	code, out = do(t, h, http.MethodPost, "/api/route/plan", `{"village_ids":["v-b","v-a"]}`)
	require.Equal(t, http.StatusOK, code, out)
	dist := out["total_distance_km"].(float64)
	assert.Equal(t, math.Round(dist), dist)
	assert.Len(t, out["stops"], 2)
}

func TestAuditEndpoint(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "")

	code, out := do(t, h, http.MethodGet, "/api/audit?start="+time.Now().Add(-time.Hour).Format(time.RFC3339), "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{}, out["entries"])

	code, _ = do(t, h, http.MethodGet, "/api/audit?end=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestBearerToken(t *testing.T) {
	h := NewRouter(nil, newTestEngine(t), "secret")

	code, out := do(t, h, http.MethodGet, "/api/summary", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", out["error"])

	req := httptest.NewRequest(http.MethodGet, "/api/summary", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

type failingEngine struct {
	Engine
	err error
}

func (f failingEngine) Summary(context.Context) (summary.Snapshot, error) {
	return summary.Snapshot{}, f.err
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Upstream("summary", errors.New("connection refused")), http.StatusBadGateway},
		{apperr.Validation("summary", "bad"), http.StatusBadRequest},
		{apperr.NotFound("summary", "village", "x"), http.StatusNotFound},
		{apperr.Conflict("summary", "busy"), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		h := NewRouter(nil, failingEngine{err: tt.err}, "")
		code, out := do(t, h, http.MethodGet, "/api/summary", "")
		assert.Equal(t, tt.want, code, tt.err.Error())
		assert.Equal(t, false, out["success"])
	}
}
