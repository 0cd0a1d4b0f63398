// Package audit keeps an append-only journal of the operations that change
// village scores, tanker states and dispatch records.
package audit

import (
	"context"
	"time"
)

// Outcome values recorded on entries.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
)

// Entry captures one engine operation.
type Entry struct {
	Time       time.Time `json:"time"`
	Op         string    `json:"op"`
	TankerIDs  []string  `json:"tanker_ids,omitempty"`
	VillageIDs []string  `json:"village_ids,omitempty"`
	LogIDs     []string  `json:"log_ids,omitempty"`
	RouteID    string    `json:"route_id,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

// Query filters journal entries. Zero fields match everything.
type Query struct {
	Start    time.Time
	End      time.Time
	Op       string
	TankerID string
}

// Journal persists entries and supports querying.
type Journal interface {
	Append(ctx context.Context, e Entry) error
	Query(ctx context.Context, q Query) ([]Entry, error)
	Close() error
}

func (q Query) match(e Entry) bool {
	if !q.Start.IsZero() && e.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && e.Time.After(q.End) {
		return false
	}
	if q.Op != "" && e.Op != q.Op {
		return false
	}
	if q.TankerID != "" {
		for _, id := range e.TankerIDs {
			if id == q.TankerID {
				return true
			}
		}
		return false
	}
	return true
}

// NopJournal discards every entry.
type NopJournal struct{}

func (NopJournal) Append(context.Context, Entry) error          { return nil }
func (NopJournal) Query(context.Context, Query) ([]Entry, error) { return nil, nil }
func (NopJournal) Close() error                                  { return nil }
