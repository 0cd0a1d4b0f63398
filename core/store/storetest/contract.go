// Package storetest holds the behaviour every store.Store implementation must
// satisfy. Adapters call Run from their own tests.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
	"github.com/kilianp07/hydroalert/core/store"
)

// Run executes the contract against stores returned by newStore. Each subtest
// gets a fresh store.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("Villages", func(t *testing.T) { testVillages(t, newStore(t)) })
	t.Run("EnvironmentalRecords", func(t *testing.T) { testRecords(t, newStore(t)) })
	t.Run("TankerTransition", func(t *testing.T) { testTankers(t, newStore(t)) })
	t.Run("DispatchLogs", func(t *testing.T) { testDispatchLogs(t, newStore(t)) })
}

func testVillages(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.InsertVillage(ctx, model.Village{ID: "v2", Name: "Beta", District: "Wardha", Population: 1200, Location: model.Location{Lat: 20.7, Lng: 78.6}, CurrentLevelPct: 40, WSI: 12}))
	require.NoError(t, s.InsertVillage(ctx, model.Village{ID: "v1", Name: "Alpha", District: "Nagpur", Population: 5000, Location: model.Location{Lat: 21.1, Lng: 79.1}, CurrentLevelPct: 80}))

	_, err := s.GetVillage(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	all, err := s.ListVillages(ctx, store.VillageFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "v1", all[0].ID)

	only, err := s.ListVillages(ctx, store.VillageFilter{District: "Wardha"})
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "Beta", only[0].Name)

	byID, err := s.ListVillages(ctx, store.VillageFilter{IDs: []string{"v2"}})
	require.NoError(t, err)
	require.Len(t, byID, 1)

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpdateVillageWSI(ctx, "v1", 140, at))
	v, err := s.GetVillage(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, v.WSI)
	assert.True(t, v.UpdatedAt.Equal(at))
	assert.InDelta(t, 21.1, v.Location.Lat, 1e-9)

	assert.ErrorIs(t, s.UpdateVillageWSI(ctx, "missing", 10, at), apperr.ErrNotFound)
}

func testRecords(t *testing.T, s store.Store) {
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.InsertEnvironmentalRecord(ctx, model.EnvironmentalRecord{
			ID:                fmtID("r", i),
			VillageID:         "v1",
			RecordDate:        base.AddDate(0, 0, i),
			RainfallMM:        float64(i),
			GroundwaterLevelM: 10 + float64(i),
		}))
	}
	require.NoError(t, s.InsertEnvironmentalRecord(ctx, model.EnvironmentalRecord{ID: "other", VillageID: "v2", RecordDate: base}))

	recs, err := s.RecentEnvironmentalRecords(ctx, "v1", 3)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].RecordDate.Equal(base.AddDate(0, 0, 4)))
	assert.True(t, recs[2].RecordDate.Equal(base.AddDate(0, 0, 2)))

	none, err := s.RecentEnvironmentalRecords(ctx, "v9", 30)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testTankers(t *testing.T, s store.Store) {
	ctx := context.Background()
	loc := model.Location{Lat: 21.0, Lng: 79.0}
	require.NoError(t, s.InsertTanker(ctx, model.Tanker{ID: "t1", RegistrationNo: "MH-31-1", CapacityLiters: 10000, Status: model.TankerAvailable, Location: &loc}))
	require.NoError(t, s.InsertTanker(ctx, model.Tanker{ID: "t2", RegistrationNo: "MH-31-2", CapacityLiters: 8000, Status: model.TankerMaintenance}))

	require.NoError(t, s.TransitionTanker(ctx, "t1", model.TankerAvailable, model.TankerEnRoute))
	err := s.TransitionTanker(ctx, "t1", model.TankerAvailable, model.TankerEnRoute)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.ErrorIs(t, s.TransitionTanker(ctx, "t9", model.TankerAvailable, model.TankerEnRoute), apperr.ErrNotFound)

	tk, err := s.GetTanker(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.TankerEnRoute, tk.Status)
	require.NotNil(t, tk.Location)

	tk2, err := s.GetTanker(ctx, "t2")
	require.NoError(t, err)
	assert.Nil(t, tk2.Location)

	st := model.TankerMaintenance
	maint, err := s.ListTankers(ctx, store.TankerFilter{Status: &st})
	require.NoError(t, err)
	require.Len(t, maint, 1)
	assert.Equal(t, "t2", maint[0].ID)
}

func testDispatchLogs(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Date(2026, 5, 2, 8, 0, 0, 0, time.UTC)
	for i, vid := range []string{"v1", "v2"} {
		require.NoError(t, s.InsertDispatchLog(ctx, model.DispatchLog{
			ID:               fmtID("l", i),
			TankerID:         "t1",
			VillageID:        vid,
			RouteID:          "route-1",
			Status:           model.DispatchPending,
			DispatchedAt:     now.Add(time.Duration(i) * time.Second),
			EstimatedArrival: now.Add(time.Duration(1+2*i) * time.Hour),
			Notes:            "test",
		}))
	}
	n, err := s.CountPending(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	delivered := now.Add(2 * time.Hour)
	l, err := s.MarkDelivered(ctx, "l0", delivered)
	require.NoError(t, err)
	assert.Equal(t, model.DispatchDelivered, l.Status)
	require.NotNil(t, l.DeliveredAt)
	assert.True(t, l.DeliveredAt.Equal(delivered))

	_, err = s.MarkDelivered(ctx, "l0", delivered.Add(time.Hour))
	assert.ErrorIs(t, err, apperr.ErrConflict)
	again, err := s.GetDispatchLog(ctx, "l0")
	require.NoError(t, err)
	assert.True(t, again.DeliveredAt.Equal(delivered))

	_, err = s.MarkDelivered(ctx, "nope", delivered)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	n, err = s.CountPending(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending := model.DispatchPending
	logs, err := s.ListDispatchLogs(ctx, store.DispatchLogFilter{TankerID: "t1", Status: &pending})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "v2", logs[0].VillageID)
	assert.Equal(t, "route-1", logs[0].RouteID)

	all, err := s.ListDispatchLogs(ctx, store.DispatchLogFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "l0", all[0].ID)
}

func fmtID(prefix string, i int) string {
	return prefix + string(rune('0'+i))
}
