package model

import "fmt"

// TankerStatus is the lifecycle state of a tanker.
type TankerStatus int

const (
	TankerAvailable TankerStatus = iota
	TankerEnRoute
	TankerMaintenance
)

// String returns the persisted name of the status.
func (s TankerStatus) String() string {
	switch s {
	case TankerAvailable:
		return "Available"
	case TankerEnRoute:
		return "En_Route"
	case TankerMaintenance:
		return "Maintenance"
	default:
		return "unknown"
	}
}

// ParseTankerStatus converts a persisted name back to a TankerStatus.
func ParseTankerStatus(s string) (TankerStatus, error) {
	switch s {
	case "Available":
		return TankerAvailable, nil
	case "En_Route":
		return TankerEnRoute, nil
	case "Maintenance":
		return TankerMaintenance, nil
	default:
		return 0, fmt.Errorf("unknown tanker status %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TankerStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TankerStatus) UnmarshalText(b []byte) error {
	v, err := ParseTankerStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Tanker is a water tanker of the fleet. Tankers are registered externally;
// only the dispatch orchestrator changes their status.
type Tanker struct {
	ID             string       `json:"id"`
	RegistrationNo string       `json:"registration_no"`
	CapacityLiters float64      `json:"capacity_liters"`
	Status         TankerStatus `json:"status"`
	Location       *Location    `json:"location,omitempty"` // last known position, nil when unknown
}
