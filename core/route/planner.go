// Package route sequences the stops of a multi-village tanker run.
//
// The planner is a greedy nearest-neighbour heuristic over great-circle
// distances. It does not model roads; arrival times come from a fixed
// linear schedule.
package route

import (
	"time"

	"github.com/kilianp07/hydroalert/core/model"
)

// Stop is one village on a planned route.
type Stop struct {
	Village model.Village `json:"village"`
	// LegKm is the distance from the previous stop (or the origin).
	LegKm float64 `json:"leg_km"`
}

// Plan is an ordered sequence of stops.
type Plan struct {
	Origin          model.Location `json:"origin"`
	Stops           []Stop         `json:"stops"`
	TotalDistanceKm float64        `json:"total_distance_km"`
}

// VillageIDs returns the ids of the stops in visiting order.
func (p Plan) VillageIDs() []string {
	ids := make([]string, len(p.Stops))
	for i, s := range p.Stops {
		ids[i] = s.Village.ID
	}
	return ids
}

// Planner orders villages into a route starting at origin.
type Planner interface {
	Plan(origin model.Location, villages []model.Village) Plan
}

// GreedyPlanner visits the nearest unvisited village at each step. Ties go
// to the village appearing first in the input.
type GreedyPlanner struct{}

var _ Planner = GreedyPlanner{}

// Plan implements Planner. The input slice is not modified.
func (GreedyPlanner) Plan(origin model.Location, villages []model.Village) Plan {
	plan := Plan{Origin: origin, Stops: make([]Stop, 0, len(villages))}
	unvisited := append([]model.Village(nil), villages...)
	current := origin
	for len(unvisited) > 0 {
		best := 0
		bestDist := Haversine(current, unvisited[0].Location)
		for i := 1; i < len(unvisited); i++ {
			if d := Haversine(current, unvisited[i].Location); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := unvisited[best]
		plan.Stops = append(plan.Stops, Stop{Village: next, LegKm: bestDist})
		plan.TotalDistanceKm += bestDist
		current = next.Location
		unvisited = append(unvisited[:best], unvisited[best+1:]...)
	}
	return plan
}

// ETASchedule is the placeholder arrival model: the first stop is reached
// First after departure and each following stop Interval later.
type ETASchedule struct {
	First    time.Duration
	Interval time.Duration
}

// DefaultSchedule returns the 1h + 2h*i schedule.
func DefaultSchedule() ETASchedule {
	return ETASchedule{First: time.Hour, Interval: 2 * time.Hour}
}

// Arrival returns the estimated arrival at the stop of 0-based index i.
func (s ETASchedule) Arrival(departure time.Time, i int) time.Time {
	return departure.Add(s.First + time.Duration(i)*s.Interval)
}

// Origin returns the tanker location, or depot when the tanker has none.
func Origin(t model.Tanker, depot model.Location) model.Location {
	if t.Location != nil {
		return *t.Location
	}
	return depot
}
