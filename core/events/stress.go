package events

import "time"

// StressEvent is published for each village updated by a stress batch.
type StressEvent struct {
	VillageID string
	Village   string
	OldWSI    float64
	NewWSI    float64
	Time      time.Time
}
