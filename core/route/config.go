package route

import (
	"fmt"
	"time"

	"github.com/kilianp07/hydroalert/core/model"
)

// Config holds routing settings.
type Config struct {
	Depot model.Location `json:"depot"`
	// FirstStopMinutes and IntervalMinutes feed the ETASchedule.
	FirstStopMinutes int `json:"first_stop_minutes"`
	IntervalMinutes  int `json:"interval_minutes"`
	// AutoAssignStops is the number of villages taken by an auto assignment.
	AutoAssignStops int `json:"auto_assign_stops"`
}

// DefaultDepot is the fallback origin for tankers without a known position.
var DefaultDepot = model.Location{Lat: 21.1458, Lng: 79.0882}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Depot == (model.Location{}) {
		c.Depot = DefaultDepot
	}
	if c.FirstStopMinutes <= 0 {
		c.FirstStopMinutes = 60
	}
	if c.IntervalMinutes <= 0 {
		c.IntervalMinutes = 120
	}
	if c.AutoAssignStops <= 0 {
		c.AutoAssignStops = 3
	}
}

// Validate checks the depot coordinates.
func (c Config) Validate() error {
	if c.Depot.Lat < -90 || c.Depot.Lat > 90 || c.Depot.Lng < -180 || c.Depot.Lng > 180 {
		return fmt.Errorf("route: depot out of range: %+v", c.Depot)
	}
	return nil
}

// Schedule builds the ETA schedule from the configured minutes.
func (c Config) Schedule() ETASchedule {
	return ETASchedule{
		First:    time.Duration(c.FirstStopMinutes) * time.Minute,
		Interval: time.Duration(c.IntervalMinutes) * time.Minute,
	}
}
