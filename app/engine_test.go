package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hydroalert/config"
	"github.com/kilianp07/hydroalert/core/alert"
	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/audit"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/store"
	"github.com/kilianp07/hydroalert/infra/logger"
)

var fixedNow = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type captureNotifier struct {
	mu   sync.Mutex
	msgs []alert.Message
	err  error
}

func (c *captureNotifier) Notify(_ context.Context, m alert.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, m)
	return c.err
}

func seed() Dataset {
	return Dataset{
		Villages: []model.Village{
			// No records: 30 + 200 * 0.5 = 130, clamped to 100.
			{ID: "v-a", Name: "Amravati", District: "North", Population: 200000, Location: model.Location{Lat: 21.20, Lng: 79.10}, CurrentLevelPct: 10, WSI: 40},
			// No records: 30 + 10 * 0.5 = 35.
			{ID: "v-b", Name: "Bhandara", District: "South", Population: 10000, Location: model.Location{Lat: 21.50, Lng: 79.60}, CurrentLevelPct: 60, WSI: 20},
		},
		Tankers: []model.Tanker{
			{ID: "t-1", RegistrationNo: "MH-31-1", CapacityLiters: 10000, Status: model.TankerAvailable},
			{ID: "t-2", RegistrationNo: "MH-31-2", CapacityLiters: 10000, Status: model.TankerMaintenance},
		},
	}
}

func newEngine(t *testing.T, n alert.Notifier, j audit.Journal) *Engine {
	t.Helper()
	e, err := New(config.Config{}, Deps{
		Store:    store.NewMemoryStore(),
		Notifier: n,
		Journal:  j,
		Log:      logger.NopLogger{},
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	_, err = e.Import(context.Background(), seed())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestRunStressBatchAlertsAboveThreshold(t *testing.T) {
	n := &captureNotifier{}
	e := newEngine(t, n, nil)

	rep, err := e.RunStressBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, rep.Deltas, 2)
	assert.Equal(t, 40.0, rep.Deltas[0].OldWSI)
	assert.Equal(t, 100.0, rep.Deltas[0].NewWSI)
	assert.Equal(t, 35.0, rep.Deltas[1].NewWSI)
	require.Len(t, rep.Alerts, 1)
	assert.Equal(t, "Amravati", rep.Alerts[0].Village)
	assert.True(t, rep.AlertsSent)
	require.Len(t, n.msgs, 1)

	v, err := e.Store().GetVillage(context.Background(), "v-a")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.WSI)
	assert.Equal(t, fixedNow, v.UpdatedAt)
}

func TestRunStressBatchNotificationFailureKeepsBatch(t *testing.T) {
	n := &captureNotifier{err: errors.New("smtp down")}
	e := newEngine(t, n, nil)

	rep, err := e.RunStressBatch(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.Deltas, 2)
	assert.False(t, rep.AlertsSent)
	assert.Contains(t, rep.AlertError, "smtp down")
}

func TestSimulateDroughtTargetsLeastStressed(t *testing.T) {
	n := &captureNotifier{}
	e := newEngine(t, n, nil)

	rep, err := e.SimulateDrought(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "v-b", rep.Delta.VillageID)
	assert.Equal(t, 85.0, rep.Delta.NewWSI)
	assert.True(t, rep.AlertsSent)
	require.Len(t, n.msgs, 1)
	assert.Equal(t, "Bhandara", n.msgs[0].Villages[0].Village)
}

func TestComputeWSIDoesNotPersist(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()
	require.NoError(t, e.Store().InsertEnvironmentalRecord(ctx, model.EnvironmentalRecord{
		ID: "r-1", VillageID: "v-b", RecordDate: fixedNow, RainfallMM: 5, GroundwaterLevelM: 20,
	}))

	f, err := e.ComputeWSI(ctx, "v-b")
	require.NoError(t, err)
	assert.True(t, f.HasRecords)
	// 30 rainfall + 20 groundwater + 2 population + 20 capacity.
	assert.Equal(t, 72.0, f.WSI)

	v, err := e.Store().GetVillage(ctx, "v-b")
	require.NoError(t, err)
	assert.Equal(t, 20.0, v.WSI)

	_, err = e.ComputeWSI(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestScorePriorityAndRanking(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	res, err := e.ScorePriority(ctx, "v-a")
	require.NoError(t, err)
	// round(40*0.7 + 100*0.3) = 58.
	assert.Equal(t, 58, res.PriorityScore)

	ranked, err := e.Priorities(ctx, "")
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "v-a", ranked[0].Village.ID)

	south, err := e.Priorities(ctx, "South")
	require.NoError(t, err)
	require.Len(t, south, 1)

	_, err = e.ScorePriority(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPlanRouteHasNoSideEffects(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	plan, err := e.PlanRoute(ctx, "t-1", []string{"v-b", "v-a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v-a", "v-b"}, plan.VillageIDs())
	assert.Equal(t, e.Config().Route.Depot, plan.Origin)
	assert.Greater(t, plan.TotalDistanceKm, 0.0)

	tk, err := e.Store().GetTanker(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TankerAvailable, tk.Status)
	logs, err := e.DispatchLogs(ctx, store.DispatchLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)

	_, err = e.PlanRoute(ctx, "", []string{"v-a", "nope"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	_, err = e.PlanRoute(ctx, "", nil)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestDispatchLifecycleAndSummary(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	res, err := e.Dispatch(ctx, "t-1", []string{"v-a", "v-b"})
	require.NoError(t, err)
	require.Len(t, res.Logs, 2)

	snap, err := e.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.ActiveTankers)
	assert.Equal(t, 2, snap.PendingDispatches)

	_, err = e.Dispatch(ctx, "t-1", []string{"v-a"})
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	for _, l := range res.Logs {
		_, err := e.CompleteDispatch(ctx, l.ID)
		require.NoError(t, err)
	}
	tk, err := e.Store().GetTanker(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TankerAvailable, tk.Status)

	snap, err = e.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.ActiveTankers)
	assert.Equal(t, 0, snap.PendingDispatches)
}

func TestAutoAssignSkipsMaintenance(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	res, err := e.AutoAssign(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "t-1", res.TankerID)
	require.Len(t, res.Logs, 1)

	_, err = e.AutoAssign(ctx, 1)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestSetMaintenance(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	tk, err := e.SetMaintenance(ctx, "t-2", false)
	require.NoError(t, err)
	assert.Equal(t, model.TankerAvailable, tk.Status)

	_, err = e.ManualDispatch(ctx, []string{"t-2"}, "v-a")
	require.NoError(t, err)
	_, err = e.SetMaintenance(ctx, "t-2", true)
	assert.True(t, errors.Is(err, apperr.ErrConflict))

	_, err = e.SetMaintenance(ctx, "missing", true)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCriticalVillages(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	crit, err := e.CriticalVillages(ctx)
	require.NoError(t, err)
	assert.Empty(t, crit)

	_, err = e.RunStressBatch(ctx)
	require.NoError(t, err)
	crit, err = e.CriticalVillages(ctx)
	require.NoError(t, err)
	require.Len(t, crit, 1)
	assert.Equal(t, "v-a", crit[0].VillageID)
}

func TestImportSkipsExistingAndValidates(t *testing.T) {
	e := newEngine(t, nil, nil)
	ctx := context.Background()

	rep, err := e.Import(ctx, seed())
	require.NoError(t, err)
	assert.Equal(t, ImportReport{Skipped: 4}, rep)

	_, err = e.Import(ctx, Dataset{Villages: []model.Village{{ID: "x"}}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = e.Import(ctx, Dataset{Tankers: []model.Tanker{{ID: "t-9", Status: model.TankerEnRoute}}})
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	_, err = e.Import(ctx, Dataset{Records: []model.EnvironmentalRecord{{VillageID: "ghost", RecordDate: fixedNow}}})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAuditLogRecordsOperations(t *testing.T) {
	j, err := audit.NewRotatingJSONLJournal(filepath.Join(t.TempDir(), "audit.jsonl"), 1, 1, 1)
	require.NoError(t, err)
	e := newEngine(t, nil, j)
	ctx := context.Background()

	_, err = e.RunStressBatch(ctx)
	require.NoError(t, err)
	_, err = e.Dispatch(ctx, "t-1", []string{"v-a"})
	require.NoError(t, err)
	_, err = e.Dispatch(ctx, "t-1", []string{"v-a"})
	require.Error(t, err)

	entries, err := e.AuditLog(ctx, audit.Query{Op: "stress_batch"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.OutcomeOK, entries[0].Outcome)

	entries, err = e.AuditLog(ctx, audit.Query{TankerID: "t-1"})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.OutcomeConflict, entries[1].Outcome)
}

func TestOpenSeedsMemoryStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"villages": [{"id": "v-1", "name": "Wardha", "population": 5000, "location": {"lat": 20.7, "lng": 78.6}}],
		"tankers": [{"id": "t-1", "status": "Available"}],
		"environmental_records": [{"village_id": "v-1", "record_date": "2024-04-30T00:00:00Z", "rainfall_mm": 3}]
	}`), 0o600))

	cfg := config.Config{Store: config.StoreConfig{Backend: config.StoreMemory, Seed: path}}
	e, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer e.Close()

	villages, err := e.Villages(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, villages, 1)
	tankers, err := e.Tankers(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, tankers, 1)
	f, err := e.ComputeWSI(context.Background(), "v-1")
	require.NoError(t, err)
	assert.True(t, f.HasRecords)
}

func TestOpenSQLiteStore(t *testing.T) {
	cfg := config.Config{Store: config.StoreConfig{Backend: config.StoreSQLite, DSN: filepath.Join(t.TempDir(), "engine.db")}}
	e, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	_, err = e.Import(context.Background(), seed())
	require.NoError(t, err)
	_, err = e.Dispatch(context.Background(), "t-1", []string{"v-b"})
	require.NoError(t, err)
	require.NoError(t, e.Close())
}
