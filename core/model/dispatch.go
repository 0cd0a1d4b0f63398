package model

import (
	"fmt"
	"time"
)

// DispatchStatus is the state of a dispatch log. Delivered is terminal.
type DispatchStatus int

const (
	DispatchPending DispatchStatus = iota
	DispatchDelivered
)

// String returns the persisted name of the status.
func (s DispatchStatus) String() string {
	switch s {
	case DispatchPending:
		return "Pending"
	case DispatchDelivered:
		return "Delivered"
	default:
		return "unknown"
	}
}

// ParseDispatchStatus converts a persisted name back to a DispatchStatus.
func ParseDispatchStatus(s string) (DispatchStatus, error) {
	switch s {
	case "Pending":
		return DispatchPending, nil
	case "Delivered":
		return DispatchDelivered, nil
	default:
		return 0, fmt.Errorf("unknown dispatch status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s DispatchStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DispatchStatus) UnmarshalText(b []byte) error {
	v, err := ParseDispatchStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DispatchLog records one tanker delivery to one village. TankerID and
// VillageID never change after creation.
type DispatchLog struct {
	ID               string         `json:"id"`
	TankerID         string         `json:"tanker_id"`
	VillageID        string         `json:"village_id"`
	RouteID          string         `json:"route_id,omitempty"`
	Status           DispatchStatus `json:"status"`
	DispatchedAt     time.Time      `json:"dispatched_at"`
	EstimatedArrival time.Time      `json:"estimated_arrival"`
	DeliveredAt      *time.Time     `json:"delivered_at,omitempty"`
	Notes            string         `json:"notes,omitempty"`
}
