// Package dispatch drives the tanker and dispatch log lifecycle.
//
// A tanker moves Available -> En_Route when it is dispatched and back to
// Available once its last pending log is delivered. Maintenance is set
// outside the engine and is never selected. A dispatch log moves
// Pending -> Delivered and never changes afterwards.
//
// Every tanker transition is a conditional store update on the expected
// prior status, so two dispatchers racing on the same tanker cannot both
// win even across processes. Within one process the orchestrator also
// serialises operations per tanker.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/events"
	"github.com/kilianp07/hydroalert/core/logger"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/monitoring"
	"github.com/kilianp07/hydroalert/core/route"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/internal/eventbus"
)

// Store is the part of the record store the orchestrator uses.
type Store interface {
	store.VillageStore
	store.TankerStore
	store.DispatchLogStore
}

// Result is the outcome of a routed dispatch.
type Result struct {
	RouteID  string              `json:"route_id"`
	TankerID string              `json:"tanker_id"`
	Plan     route.Plan          `json:"plan"`
	Logs     []model.DispatchLog `json:"logs"`
}

// Orchestrator applies dispatch decisions to the store.
type Orchestrator struct {
	store    Store
	planner  route.Planner
	schedule route.ETASchedule
	cfg      Config
	log      logger.Logger
	journal  audit.Journal
	bus      eventbus.Publisher[events.DispatchEvent]
	locks    *keyedMutex
	now      func() time.Time
	newID    func() string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithPlanner replaces the greedy route planner.
func WithPlanner(p route.Planner) Option { return func(o *Orchestrator) { o.planner = p } }

// WithJournal records every operation in j.
func WithJournal(j audit.Journal) Option { return func(o *Orchestrator) { o.journal = j } }

// WithPublisher publishes a DispatchEvent per state change.
func WithPublisher(p eventbus.Publisher[events.DispatchEvent]) Option {
	return func(o *Orchestrator) { o.bus = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithIDGenerator overrides the UUID generator used for log and route ids.
func WithIDGenerator(f func() string) Option { return func(o *Orchestrator) { o.newID = f } }

// New creates an Orchestrator. cfg defaults are applied.
func New(s Store, cfg Config, log logger.Logger, opts ...Option) (*Orchestrator, error) {
	if s == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to New")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	o := &Orchestrator{
		store:    s,
		planner:  route.GreedyPlanner{},
		schedule: cfg.Route.Schedule(),
		cfg:      cfg,
		log:      log,
		journal:  audit.NopJournal{},
		bus:      eventbus.Nop[events.DispatchEvent]{},
		locks:    newKeyedMutex(),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Planner returns the route planner in use.
func (o *Orchestrator) Planner() route.Planner { return o.planner }

// Depot returns the origin used for tankers without a location.
func (o *Orchestrator) Depot() model.Location { return o.cfg.Route.Depot }

// Schedule returns the ETA schedule applied to new logs.
func (o *Orchestrator) Schedule() route.ETASchedule { return o.schedule }

func (o *Orchestrator) publish(action events.DispatchAction, logID, tankerID, villageID string) {
	o.bus.Publish(events.DispatchEvent{
		Action:    action,
		LogID:     logID,
		TankerID:  tankerID,
		VillageID: villageID,
		Time:      o.now(),
	})
}

// record appends an audit entry; failures are logged and never surface.
func (o *Orchestrator) record(ctx context.Context, e audit.Entry, err error) {
	e.Time = o.now()
	switch {
	case err == nil:
		e.Outcome = audit.OutcomeOK
	case apperr.KindOf(err) == apperr.KindConflict:
		e.Outcome = audit.OutcomeConflict
		e.Error = err.Error()
	default:
		e.Outcome = audit.OutcomeError
		e.Error = err.Error()
	}
	if jerr := o.journal.Append(ctx, e); jerr != nil {
		o.log.Errorw("audit append failed", jerr, map[string]any{"op": e.Op})
	}
}

// fail classifies err for the caller, counts conflicts and reports
// upstream failures.
func (o *Orchestrator) fail(op string, err error, tags map[string]string) error {
	err = apperr.Upstream(op, err)
	switch apperr.KindOf(err) {
	case apperr.KindConflict:
		conflicts.WithLabelValues(op).Inc()
		o.log.Warnf("%s rejected: %v", op, err)
	case apperr.KindUpstream, apperr.KindUnknown:
		o.log.Errorw(op+" failed", err, toFields(tags))
		monitoring.CaptureUpstream(op, err, tags)
	}
	return err
}

// revert moves a tanker that received no log back to Available.
func (o *Orchestrator) revert(ctx context.Context, op, tankerID string) {
	if err := o.store.TransitionTanker(ctx, tankerID, model.TankerEnRoute, model.TankerAvailable); err != nil {
		o.log.Errorw("tanker revert failed", err, map[string]any{"op": op, "tanker_id": tankerID})
		monitoring.CaptureUpstream(op, err, map[string]string{"tanker_id": tankerID, "stage": "revert"})
		return
	}
	o.publish(events.ActionTankerRevert, "", tankerID, "")
}

func toFields(tags map[string]string) map[string]any {
	f := make(map[string]any, len(tags))
	for k, v := range tags {
		f[k] = v
	}
	return f
}

// checkIDs rejects empty lists, blank ids and duplicates.
func checkIDs(op, entity string, ids []string) error {
	if len(ids) == 0 {
		return apperr.Validation(op, "at least one %s id is required", entity)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return apperr.Validation(op, "%s id must not be empty", entity)
		}
		if seen[id] {
			return apperr.Validation(op, "duplicate %s id %q", entity, id)
		}
		seen[id] = true
	}
	return nil
}
