// Package api exposes the decision engine over HTTP.
//
// Every response is a JSON object carrying "success" and, on failure,
// "error". Error kinds map to status codes: validation 400, not found 404,
// conflict 409, upstream 502, anything else 500.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kilianp07/hydroalert/app"
	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/dispatch"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/priority"
	"github.com/kilianp07/hydroalert/core/route"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/core/stress"
	"github.com/kilianp07/hydroalert/core/summary"
	"github.com/kilianp07/hydroalert/infra/logger"
)

// maxBody caps request bodies.
const maxBody = 64 << 10

// Engine defines the engine operations the API needs.
type Engine interface {
	ComputeWSI(ctx context.Context, villageID string) (stress.Factors, error)
	RunStressBatch(ctx context.Context) (app.BatchReport, error)
	SimulateDrought(ctx context.Context, wsi float64) (app.SimulationReport, error)
	ScorePriority(ctx context.Context, villageID string) (priority.Result, error)
	Priorities(ctx context.Context, district string) ([]priority.Ranked, error)
	PlanRoute(ctx context.Context, tankerID string, villageIDs []string) (route.Plan, error)
	Dispatch(ctx context.Context, tankerID string, villageIDs []string) (dispatch.Result, error)
	ManualDispatch(ctx context.Context, tankerIDs []string, villageID string) ([]model.DispatchLog, error)
	CompleteDispatch(ctx context.Context, logID string) (model.DispatchLog, error)
	AutoAssign(ctx context.Context, stops int) (dispatch.Result, error)
	Summary(ctx context.Context) (summary.Snapshot, error)
	Villages(ctx context.Context, district string) ([]model.Village, error)
	CriticalVillages(ctx context.Context) ([]alert.Payload, error)
	Tankers(ctx context.Context, status *model.TankerStatus) ([]model.Tanker, error)
	SetMaintenance(ctx context.Context, tankerID string, on bool) (model.Tanker, error)
	DispatchLogs(ctx context.Context, f store.DispatchLogFilter) ([]model.DispatchLog, error)
	AuditLog(ctx context.Context, q audit.Query) ([]audit.Entry, error)
}

var _ Engine = (*app.Engine)(nil)

// API holds dependencies for HTTP handlers.
type API struct {
	log   logger.Logger
	eng   Engine
	token string
}

// New creates the API. A non-empty token is required as a Bearer token on
// every /api request.
func New(log logger.Logger, eng Engine, token string) *API {
	if log == nil {
		log = logger.NopLogger{}
	}
	if eng == nil {
		panic("api: engine is required")
	}
	return &API{log: log, eng: eng, token: token}
}

// NewRouter returns a chi router with the middleware stack and every route.
func NewRouter(log logger.Logger, eng Engine, token string) http.Handler {
	a := New(log, eng, token)
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(maxBody))
	r.Use(a.accessLog)
	r.Get("/-/healthy", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	a.RegisterRoutes(r)
	return r
}

// RegisterRoutes attaches the endpoints to r.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(a.auth)

		r.Post("/stress/run", a.handleStressRun)
		r.Post("/stress/simulate", a.handleSimulate)

		r.Get("/villages", a.handleVillages)
		r.Get("/villages/priorities", a.handlePriorities)
		r.Get("/villages/critical", a.handleCritical)
		r.Get("/villages/{id}/wsi", a.handleVillageWSI)
		r.Get("/villages/{id}/priority", a.handleVillagePriority)

		r.Get("/tankers", a.handleTankers)
		r.Post("/tankers/{id}/maintenance", a.handleMaintenance)

		r.Get("/summary", a.handleSummary)

		r.Post("/route/plan", a.handlePlanRoute)
		r.Post("/dispatch", a.handleDispatch)
		r.Get("/dispatch/logs", a.handleDispatchLogs)

		r.Get("/audit", a.handleAudit)
	})
}

func (a *API) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token != "" && r.Header.Get("Authorization") != "Bearer "+a.token {
			writeJSON(w, http.StatusUnauthorized, envelope{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debugw("http request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  middleware.GetReqID(r.Context()),
		})
	})
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

var okEnvelope = envelope{Success: true}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps an error kind to its HTTP status.
func statusOf(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		a.log.Errorw("request failed", err, map[string]any{"path": r.URL.Path})
	}
	writeJSON(w, status, envelope{Error: err.Error()})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.Validation("decode request", "invalid JSON body: %v", err)
}
