package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/hydroalert/core/apperr"
	"github.com/kilianp07/hydroalert/core/model"
)

// MemoryStore keeps every collection in maps guarded by a single RWMutex.
type MemoryStore struct {
	mu       sync.RWMutex
	villages map[string]model.Village
	records  map[string][]model.EnvironmentalRecord
	tankers  map[string]model.Tanker
	logs     map[string]model.DispatchLog
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		villages: map[string]model.Village{},
		records:  map[string][]model.EnvironmentalRecord{},
		tankers:  map[string]model.Tanker{},
		logs:     map[string]model.DispatchLog{},
	}
}

func (s *MemoryStore) GetVillage(_ context.Context, id string) (model.Village, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.villages[id]
	if !ok {
		return model.Village{}, apperr.NotFound("get village", "village", id)
	}
	return v, nil
}

func (s *MemoryStore) ListVillages(_ context.Context, f VillageFilter) ([]model.Village, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids map[string]bool
	if len(f.IDs) > 0 {
		ids = make(map[string]bool, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = true
		}
	}
	res := make([]model.Village, 0, len(s.villages))
	for _, v := range s.villages {
		if ids != nil && !ids[v.ID] {
			continue
		}
		if f.District != "" && v.District != f.District {
			continue
		}
		res = append(res, v)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) InsertVillage(_ context.Context, v model.Village) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.villages[v.ID]; ok {
		return apperr.Conflict("insert village", "village %q already exists", v.ID)
	}
	v.WSI = model.ClampWSI(v.WSI)
	s.villages[v.ID] = v
	return nil
}

func (s *MemoryStore) UpdateVillageWSI(_ context.Context, id string, wsi float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.villages[id]
	if !ok {
		return apperr.NotFound("update village wsi", "village", id)
	}
	v.WSI = model.ClampWSI(wsi)
	v.UpdatedAt = at
	s.villages[id] = v
	return nil
}

func (s *MemoryStore) InsertEnvironmentalRecord(_ context.Context, rec model.EnvironmentalRecord) error {
	s.mu.Lock()
	s.records[rec.VillageID] = append(s.records[rec.VillageID], rec)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) RecentEnvironmentalRecords(_ context.Context, villageID string, limit int) ([]model.EnvironmentalRecord, error) {
	s.mu.RLock()
	res := append([]model.EnvironmentalRecord(nil), s.records[villageID]...)
	s.mu.RUnlock()
	sort.SliceStable(res, func(i, j int) bool { return res[i].RecordDate.After(res[j].RecordDate) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (s *MemoryStore) GetTanker(_ context.Context, id string) (model.Tanker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tankers[id]
	if !ok {
		return model.Tanker{}, apperr.NotFound("get tanker", "tanker", id)
	}
	return t, nil
}

func (s *MemoryStore) ListTankers(_ context.Context, f TankerFilter) ([]model.Tanker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.Tanker, 0, len(s.tankers))
	for _, t := range s.tankers {
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		res = append(res, t)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (s *MemoryStore) InsertTanker(_ context.Context, t model.Tanker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tankers[t.ID]; ok {
		return apperr.Conflict("insert tanker", "tanker %q already exists", t.ID)
	}
	s.tankers[t.ID] = t
	return nil
}

func (s *MemoryStore) TransitionTanker(_ context.Context, id string, from, to model.TankerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tankers[id]
	if !ok {
		return apperr.NotFound("transition tanker", "tanker", id)
	}
	if t.Status != from {
		return apperr.Conflict("transition tanker", "tanker %q is %s, expected %s", id, t.Status, from)
	}
	t.Status = to
	s.tankers[id] = t
	return nil
}

func (s *MemoryStore) GetDispatchLog(_ context.Context, id string) (model.DispatchLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.logs[id]
	if !ok {
		return model.DispatchLog{}, apperr.NotFound("get dispatch log", "dispatch log", id)
	}
	return l, nil
}

func (s *MemoryStore) ListDispatchLogs(_ context.Context, f DispatchLogFilter) ([]model.DispatchLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.DispatchLog, 0, len(s.logs))
	for _, l := range s.logs {
		if f.TankerID != "" && l.TankerID != f.TankerID {
			continue
		}
		if f.VillageID != "" && l.VillageID != f.VillageID {
			continue
		}
		if f.Status != nil && l.Status != *f.Status {
			continue
		}
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].DispatchedAt.Equal(res[j].DispatchedAt) {
			return res[i].DispatchedAt.Before(res[j].DispatchedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (s *MemoryStore) InsertDispatchLog(_ context.Context, l model.DispatchLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[l.ID]; ok {
		return apperr.Conflict("insert dispatch log", "dispatch log %q already exists", l.ID)
	}
	s.logs[l.ID] = l
	return nil
}

func (s *MemoryStore) MarkDelivered(_ context.Context, id string, at time.Time) (model.DispatchLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[id]
	if !ok {
		return model.DispatchLog{}, apperr.NotFound("complete dispatch", "dispatch log", id)
	}
	if l.Status != model.DispatchPending {
		return model.DispatchLog{}, apperr.Conflict("complete dispatch", "dispatch log %q is %s", id, l.Status)
	}
	l.Status = model.DispatchDelivered
	l.DeliveredAt = &at
	s.logs[id] = l
	return l, nil
}

func (s *MemoryStore) CountPending(_ context.Context, tankerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, l := range s.logs {
		if l.TankerID == tankerID && l.Status == model.DispatchPending {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }
