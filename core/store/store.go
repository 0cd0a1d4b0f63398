// Package store defines the record store the decision engine reads from and
// writes to. Implementations live in this package (MemoryStore) and under
// infra/store.
//
// Missing entities are reported with apperr.NotFound, state preconditions
// that do not hold with apperr.Conflict, and driver failures with
// apperr.Upstream.
package store

import (
	"context"
	"time"

	"github.com/kilianp07/hydroalert/core/model"
)

// VillageFilter narrows ListVillages. Zero values match everything.
type VillageFilter struct {
	IDs      []string
	District string
}

// TankerFilter narrows ListTankers.
type TankerFilter struct {
	Status *model.TankerStatus
}

// DispatchLogFilter narrows ListDispatchLogs.
type DispatchLogFilter struct {
	TankerID  string
	VillageID string
	Status    *model.DispatchStatus
}

type VillageStore interface {
	GetVillage(ctx context.Context, id string) (model.Village, error)
	// ListVillages returns villages ordered by id.
	ListVillages(ctx context.Context, f VillageFilter) ([]model.Village, error)
	InsertVillage(ctx context.Context, v model.Village) error
	UpdateVillageWSI(ctx context.Context, id string, wsi float64, at time.Time) error
}

type EnvironmentStore interface {
	InsertEnvironmentalRecord(ctx context.Context, rec model.EnvironmentalRecord) error
	// RecentEnvironmentalRecords returns at most limit records for the village,
	// most recent first.
	RecentEnvironmentalRecords(ctx context.Context, villageID string, limit int) ([]model.EnvironmentalRecord, error)
}

type TankerStore interface {
	GetTanker(ctx context.Context, id string) (model.Tanker, error)
	// ListTankers returns tankers ordered by id.
	ListTankers(ctx context.Context, f TankerFilter) ([]model.Tanker, error)
	InsertTanker(ctx context.Context, t model.Tanker) error
	// TransitionTanker sets the tanker status to `to` only if it currently is
	// `from`. Any other current status yields a conflict error.
	TransitionTanker(ctx context.Context, id string, from, to model.TankerStatus) error
}

type DispatchLogStore interface {
	GetDispatchLog(ctx context.Context, id string) (model.DispatchLog, error)
	// ListDispatchLogs returns logs ordered by dispatch time then id.
	ListDispatchLogs(ctx context.Context, f DispatchLogFilter) ([]model.DispatchLog, error)
	InsertDispatchLog(ctx context.Context, l model.DispatchLog) error
	// MarkDelivered moves a Pending log to Delivered and stamps delivered_at.
	// A log that is not Pending yields a conflict error and is left untouched.
	MarkDelivered(ctx context.Context, id string, at time.Time) (model.DispatchLog, error)
	CountPending(ctx context.Context, tankerID string) (int, error)
}

// Store groups every collection used by the engine.
type Store interface {
	VillageStore
	EnvironmentStore
	TankerStore
	DispatchLogStore
	Close() error
}
