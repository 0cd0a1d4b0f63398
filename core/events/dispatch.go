package events

import "time"

// DispatchAction names what happened in a DispatchEvent.
type DispatchAction string

const (
	ActionLogCreated   DispatchAction = "log_created"
	ActionDelivered    DispatchAction = "delivered"
	ActionTankerFreed  DispatchAction = "tanker_freed"
	ActionConflict     DispatchAction = "conflict"
	ActionTankerRevert DispatchAction = "tanker_reverted"
)

// DispatchEvent is emitted by the dispatch orchestrator.
type DispatchEvent struct {
	Action    DispatchAction
	LogID     string
	TankerID  string
	VillageID string
	Time      time.Time
}

// AlertEvent is emitted after the alert trigger evaluated a batch.
type AlertEvent struct {
	Villages []string
	Sent     bool
	Err      error
	Time     time.Time
}
