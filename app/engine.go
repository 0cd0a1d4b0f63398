// Package app wires the decision engine from configuration and exposes its
// operations to the HTTP and CLI boundaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/hydroalert/config"
	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/dispatch"
	"github.com/kilianp07/hydroalert/core/events"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/priority"
	"github.com/kilianp07/hydroalert/core/route"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/core/stress"
	"github.com/kilianp07/hydroalert/core/summary"
	"github.com/kilianp07/hydroalert/infra/logger"
	"github.com/kilianp07/hydroalert/internal/eventbus"
)

const busBuffer = 64

// Deps are the collaborators of an Engine. Nil fields fall back to an
// in-memory store, a no-op notifier, a no-op journal and a zerolog logger.
type Deps struct {
	Store    store.Store
	Notifier alert.Notifier
	Journal  audit.Journal
	Log      logger.Logger
	// Clock overrides the time source of every component.
	Clock func() time.Time
}

// Engine is the drought-response decision engine.
type Engine struct {
	cfg      config.Config
	store    store.Store
	journal  audit.Journal
	stress   *stress.Aggregator
	trigger  *alert.Trigger
	dispatch *dispatch.Orchestrator
	log      logger.Logger
	now      func() time.Time

	StressEvents   *eventbus.Bus[events.StressEvent]
	DispatchEvents *eventbus.Bus[events.DispatchEvent]
	AlertEvents    *eventbus.Bus[events.AlertEvent]

	closers []func() error
}

// BatchReport is the outcome of a stress batch. A failed notification is
// reported in AlertError and does not fail the batch.
type BatchReport struct {
	Deltas     []stress.Delta  `json:"deltas"`
	Alerts     []alert.Payload `json:"alerts"`
	AlertsSent bool            `json:"alerts_sent"`
	AlertError string          `json:"alert_error,omitempty"`
}

// SimulationReport is the outcome of a drought simulation.
type SimulationReport struct {
	Delta      stress.Delta `json:"delta"`
	AlertsSent bool         `json:"alerts_sent"`
	AlertError string       `json:"alert_error,omitempty"`
}

// New builds an Engine over deps. cfg defaults are applied.
func New(cfg config.Config, deps Deps) (*Engine, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if deps.Store == nil {
		deps.Store = store.NewMemoryStore()
	}
	if deps.Journal == nil {
		deps.Journal = audit.NopJournal{}
	}
	if deps.Log == nil {
		deps.Log = logger.New("engine")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	e := &Engine{
		cfg:            cfg,
		store:          deps.Store,
		journal:        deps.Journal,
		log:            deps.Log,
		now:            deps.Clock,
		StressEvents:   eventbus.New[events.StressEvent](busBuffer),
		DispatchEvents: eventbus.New[events.DispatchEvent](busBuffer),
		AlertEvents:    eventbus.New[events.AlertEvent](busBuffer),
	}

	agg, err := stress.NewAggregator(deps.Store, deps.Store, cfg.Stress, logger.New("stress"),
		stress.WithClock(deps.Clock),
		stress.WithPublisher(e.StressEvents),
	)
	if err != nil {
		return nil, err
	}
	e.stress = agg
	e.trigger = alert.NewTrigger(cfg.Alert, deps.Notifier, logger.New("alert"), e.AlertEvents)

	orch, err := dispatch.New(deps.Store, cfg.Dispatch, logger.New("dispatch"),
		dispatch.WithJournal(deps.Journal),
		dispatch.WithPublisher(e.DispatchEvents),
		dispatch.WithClock(deps.Clock),
	)
	if err != nil {
		return nil, err
	}
	e.dispatch = orch
	return e, nil
}

// Config returns the effective configuration.
func (e *Engine) Config() config.Config { return e.cfg }

// Store returns the record store.
func (e *Engine) Store() store.Store { return e.store }

// Close closes the event buses, then the journal, the store and every
// resource registered by Open.
func (e *Engine) Close() error {
	e.StressEvents.Close()
	e.DispatchEvents.Close()
	e.AlertEvents.Close()
	var errs []error
	if err := e.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("journal: %w", err))
	}
	if err := e.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ComputeWSI scores one village from its recent records without persisting
// anything.
func (e *Engine) ComputeWSI(ctx context.Context, villageID string) (stress.Factors, error) {
	v, err := e.store.GetVillage(ctx, villageID)
	if err != nil {
		return stress.Factors{}, apperr.Upstream("compute wsi", err)
	}
	recs, err := e.store.RecentEnvironmentalRecords(ctx, villageID, e.cfg.Stress.HistoryLimit)
	if err != nil {
		return stress.Factors{}, apperr.Upstream("compute wsi", err)
	}
	return stress.Breakdown(v, recs, e.stress.Weights()), nil
}

// RunStressBatch refreshes every village score and evaluates the alert
// threshold on the resulting deltas.
func (e *Engine) RunStressBatch(ctx context.Context) (BatchReport, error) {
	deltas, err := e.stress.Run(ctx)
	e.record(ctx, audit.Entry{Op: "stress_batch"}, err)
	if err != nil {
		return BatchReport{}, err
	}
	rep := BatchReport{Deltas: deltas}
	ar, aerr := e.trigger.Evaluate(ctx, deltas)
	rep.Alerts, rep.AlertsSent = ar.Alerts, ar.Sent
	if aerr != nil {
		rep.AlertError = aerr.Error()
	}
	return rep, nil
}

// SimulateDrought forces the least stressed village to wsi (the configured
// simulation score when wsi is not positive) and runs the alert path.
func (e *Engine) SimulateDrought(ctx context.Context, wsi float64) (SimulationReport, error) {
	d, err := e.stress.SimulateDrought(ctx, wsi)
	entry := audit.Entry{Op: "simulate_drought"}
	if err == nil {
		entry.VillageIDs = []string{d.VillageID}
	}
	e.record(ctx, entry, err)
	if err != nil {
		return SimulationReport{}, err
	}
	rep := SimulationReport{Delta: d}
	ar, aerr := e.trigger.Evaluate(ctx, []stress.Delta{d})
	rep.AlertsSent = ar.Sent
	if aerr != nil {
		rep.AlertError = aerr.Error()
	}
	return rep, nil
}

// ScorePriority scores one village against the largest population of every
// registered village.
func (e *Engine) ScorePriority(ctx context.Context, villageID string) (priority.Result, error) {
	villages, err := e.store.ListVillages(ctx, store.VillageFilter{})
	if err != nil {
		return priority.Result{}, apperr.Upstream("score priority", err)
	}
	for _, v := range villages {
		if v.ID == villageID {
			return priority.Score(v, priority.MaxPopulation(villages), e.cfg.Priority), nil
		}
	}
	return priority.Result{}, apperr.NotFound("score priority", "village", villageID)
}

// Priorities ranks the villages of district, or all villages when district
// is empty, by descending priority score.
func (e *Engine) Priorities(ctx context.Context, district string) ([]priority.Ranked, error) {
	villages, err := e.store.ListVillages(ctx, store.VillageFilter{District: district})
	if err != nil {
		return nil, apperr.Upstream("priorities", err)
	}
	return priority.Rank(villages, e.cfg.Priority), nil
}

// PlanRoute sequences villageIDs from the tanker position, or from the depot
// when tankerID is empty or the tanker has no known location. Nothing is
// persisted.
func (e *Engine) PlanRoute(ctx context.Context, tankerID string, villageIDs []string) (route.Plan, error) {
	const op = "plan route"
	if len(villageIDs) == 0 {
		return route.Plan{}, apperr.Validation(op, "at least one village id is required")
	}
	origin := e.dispatch.Depot()
	if tankerID != "" {
		t, err := e.store.GetTanker(ctx, tankerID)
		if err != nil {
			return route.Plan{}, apperr.Upstream(op, err)
		}
		origin = route.Origin(t, origin)
	}
	villages, err := e.store.ListVillages(ctx, store.VillageFilter{IDs: villageIDs})
	if err != nil {
		return route.Plan{}, apperr.Upstream(op, err)
	}
	byID := make(map[string]model.Village, len(villages))
	for _, v := range villages {
		byID[v.ID] = v
	}
	ordered := make([]model.Village, 0, len(villageIDs))
	for _, id := range villageIDs {
		v, ok := byID[id]
		if !ok {
			return route.Plan{}, apperr.NotFound(op, "village", id)
		}
		ordered = append(ordered, v)
	}
	return e.dispatch.Planner().Plan(origin, ordered), nil
}

// Dispatch plans and commits a multi-stop run for one tanker.
func (e *Engine) Dispatch(ctx context.Context, tankerID string, villageIDs []string) (dispatch.Result, error) {
	return e.dispatch.Dispatch(ctx, tankerID, villageIDs)
}

// ManualDispatch sends every listed tanker to one village.
func (e *Engine) ManualDispatch(ctx context.Context, tankerIDs []string, villageID string) ([]model.DispatchLog, error) {
	return e.dispatch.ManualDispatch(ctx, tankerIDs, villageID)
}

// CompleteDispatch marks a log delivered.
func (e *Engine) CompleteDispatch(ctx context.Context, logID string) (model.DispatchLog, error) {
	return e.dispatch.CompleteDispatch(ctx, logID)
}

// AutoAssign dispatches the first available tanker to the top ranked
// villages. A non-positive stops uses the configured count.
func (e *Engine) AutoAssign(ctx context.Context, stops int) (dispatch.Result, error) {
	return e.dispatch.AutoAssign(ctx, stops)
}

// Summary builds the dashboard snapshot.
func (e *Engine) Summary(ctx context.Context) (summary.Snapshot, error) {
	villages, err := e.store.ListVillages(ctx, store.VillageFilter{})
	if err != nil {
		return summary.Snapshot{}, apperr.Upstream("summary", err)
	}
	tankers, err := e.store.ListTankers(ctx, store.TankerFilter{})
	if err != nil {
		return summary.Snapshot{}, apperr.Upstream("summary", err)
	}
	pending := model.DispatchPending
	logs, err := e.store.ListDispatchLogs(ctx, store.DispatchLogFilter{Status: &pending})
	if err != nil {
		return summary.Snapshot{}, apperr.Upstream("summary", err)
	}
	return summary.Build(villages, tankers, logs, e.trigger.Threshold()), nil
}

// Villages lists the villages of district, or all villages when empty.
func (e *Engine) Villages(ctx context.Context, district string) ([]model.Village, error) {
	v, err := e.store.ListVillages(ctx, store.VillageFilter{District: district})
	if err != nil {
		return nil, apperr.Upstream("list villages", err)
	}
	return v, nil
}

// Tankers lists the fleet, optionally restricted to one status.
func (e *Engine) Tankers(ctx context.Context, status *model.TankerStatus) ([]model.Tanker, error) {
	t, err := e.store.ListTankers(ctx, store.TankerFilter{Status: status})
	if err != nil {
		return nil, apperr.Upstream("list tankers", err)
	}
	return t, nil
}

// DispatchLogs lists dispatch logs matching f.
func (e *Engine) DispatchLogs(ctx context.Context, f store.DispatchLogFilter) ([]model.DispatchLog, error) {
	l, err := e.store.ListDispatchLogs(ctx, f)
	if err != nil {
		return nil, apperr.Upstream("list dispatch logs", err)
	}
	return l, nil
}

// CriticalVillages lists the villages whose stored WSI is strictly above the
// alert threshold, most stressed first.
func (e *Engine) CriticalVillages(ctx context.Context) ([]alert.Payload, error) {
	villages, err := e.store.ListVillages(ctx, store.VillageFilter{})
	if err != nil {
		return nil, apperr.Upstream("critical villages", err)
	}
	deltas := make([]stress.Delta, len(villages))
	for i, v := range villages {
		deltas[i] = stress.Delta{VillageID: v.ID, Village: v.Name, OldWSI: v.WSI, NewWSI: v.WSI}
	}
	out := e.trigger.Select(deltas)
	sortPayloads(out)
	return out, nil
}

// SetMaintenance moves an Available tanker to Maintenance (on) or a
// Maintenance tanker back to Available (off). En_Route tankers are refused.
func (e *Engine) SetMaintenance(ctx context.Context, tankerID string, on bool) (model.Tanker, error) {
	const op = "set maintenance"
	from, to := model.TankerAvailable, model.TankerMaintenance
	if !on {
		from, to = to, from
	}
	err := e.store.TransitionTanker(ctx, tankerID, from, to)
	e.record(ctx, audit.Entry{Op: "set_maintenance", TankerIDs: []string{tankerID}}, err)
	if err != nil {
		return model.Tanker{}, apperr.Upstream(op, err)
	}
	e.log.Infof("tanker %s: %s -> %s", tankerID, from, to)
	t, err := e.store.GetTanker(ctx, tankerID)
	if err != nil {
		return model.Tanker{}, apperr.Upstream(op, err)
	}
	return t, nil
}

// AuditLog queries the operation journal.
func (e *Engine) AuditLog(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	entries, err := e.journal.Query(ctx, q)
	if err != nil {
		return nil, apperr.Upstream("audit log", err)
	}
	return entries, nil
}

func (e *Engine) record(ctx context.Context, entry audit.Entry, err error) {
	entry.Time = e.now()
	switch {
	case err == nil:
		entry.Outcome = audit.OutcomeOK
	case apperr.KindOf(err) == apperr.KindConflict:
		entry.Outcome = audit.OutcomeConflict
		entry.Error = err.Error()
	default:
		entry.Outcome = audit.OutcomeError
		entry.Error = err.Error()
	}
	if jerr := e.journal.Append(ctx, entry); jerr != nil {
		e.log.Errorw("audit append failed", jerr, map[string]any{"op": entry.Op})
	}
}
