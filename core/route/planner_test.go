package route

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/hydroalert/core/model"
)

func village(id string, lat, lng float64) model.Village {
	return model.Village{ID: id, Name: id, Location: model.Location{Lat: lat, Lng: lng}}
}

func TestHaversine(t *testing.T) {
	assert.Equal(t, 0.0, Haversine(DefaultDepot, DefaultDepot))
	// One degree of latitude is about 111.19 km.
	d := Haversine(model.Location{Lat: 0, Lng: 0}, model.Location{Lat: 1, Lng: 0})
	assert.InDelta(t, 111.19, d, 0.01)
	a := model.Location{Lat: 21.1458, Lng: 79.0882}
	b := model.Location{Lat: 19.0760, Lng: 72.8777}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-9)
}

func TestGreedyPlanOrdersByNearest(t *testing.T) {
	villages := []model.Village{
		village("far", 21.6, 79.0882),
		village("near", 21.2, 79.0882),
		village("mid", 21.4, 79.0882),
	}
	plan := GreedyPlanner{}.Plan(DefaultDepot, villages)
	assert.Equal(t, []string{"near", "mid", "far"}, plan.VillageIDs())

	var sum float64
	for _, s := range plan.Stops {
		sum += s.LegKm
	}
	assert.InDelta(t, sum, plan.TotalDistanceKm, 1e-9)
	assert.InDelta(t, Haversine(DefaultDepot, villages[0].Location), plan.TotalDistanceKm, 1e-6)
	assert.Equal(t, "far", villages[0].ID, "input must not be reordered")
}

func TestGreedyPlanIsPermutationAndDeterministic(t *testing.T) {
	villages := []model.Village{
		village("a", 20.1, 78.2), village("b", 21.9, 79.5), village("c", 20.7, 80.1),
		village("d", 21.0, 79.0), village("e", 22.3, 78.8),
	}
	first := GreedyPlanner{}.Plan(DefaultDepot, villages)
	for i := 0; i < 5; i++ {
		again := GreedyPlanner{}.Plan(DefaultDepot, villages)
		require.Equal(t, first, again)
	}
	ids := first.VillageIDs()
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)
}

func TestGreedyPlanTieGoesToEarliest(t *testing.T) {
	villages := []model.Village{
		village("east", 0, 1),
		village("west", 0, -1),
	}
	plan := GreedyPlanner{}.Plan(model.Location{}, villages)
	assert.Equal(t, []string{"east", "west"}, plan.VillageIDs())
}

func TestGreedyPlanEmpty(t *testing.T) {
	plan := GreedyPlanner{}.Plan(DefaultDepot, nil)
	assert.Empty(t, plan.Stops)
	assert.Zero(t, plan.TotalDistanceKm)
}

func TestScheduleArrival(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	s := DefaultSchedule()
	for i, h := range []int{1, 3, 5} {
		assert.True(t, s.Arrival(now, i).Equal(now.Add(time.Duration(h)*time.Hour)))
	}
	var cfg Config
	cfg.SetDefaults()
	assert.Equal(t, s, cfg.Schedule())
}

func TestOrigin(t *testing.T) {
	loc := model.Location{Lat: 20, Lng: 78}
	assert.Equal(t, loc, Origin(model.Tanker{Location: &loc}, DefaultDepot))
	assert.Equal(t, DefaultDepot, Origin(model.Tanker{}, DefaultDepot))
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{Depot: model.Location{Lat: 91}}
	cfg.SetDefaults()
	assert.Error(t, cfg.Validate())
	cfg.Depot = DefaultDepot
	assert.NoError(t, cfg.Validate())
}
