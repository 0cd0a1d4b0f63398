// Package summary builds the dashboard snapshot of the drought situation.
package summary

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/hydroalert/core/model"
)

// TopCritical is how many critical village names a snapshot lists.
const TopCritical = 5

// Snapshot summarises villages, fleet and open dispatches.
type Snapshot struct {
	Villages          int      `json:"villages"`
	CriticalZones     int      `json:"critical_zones"`
	CriticalVillages  []string `json:"critical_villages"`
	AverageWSI        float64  `json:"average_wsi"`
	MaxWSI            float64  `json:"max_wsi"`
	ActiveTankers     int      `json:"active_tankers"`
	AvailableTankers  int      `json:"available_tankers"`
	PendingDispatches int      `json:"pending_dispatches"`
}

// Build computes the snapshot. A village is critical when its WSI is
// strictly above threshold. AverageWSI is rounded to the nearest integer and
// zero for an empty set.
func Build(villages []model.Village, tankers []model.Tanker, logs []model.DispatchLog, threshold float64) Snapshot {
	s := Snapshot{Villages: len(villages), CriticalVillages: []string{}}

	if len(villages) > 0 {
		scores := make([]float64, len(villages))
		for i, v := range villages {
			scores[i] = v.WSI
			s.MaxWSI = math.Max(s.MaxWSI, v.WSI)
		}
		s.AverageWSI = math.Round(stat.Mean(scores, nil))
	}

	critical := make([]model.Village, 0)
	for _, v := range villages {
		if v.WSI > threshold {
			critical = append(critical, v)
		}
	}
	s.CriticalZones = len(critical)
	sort.SliceStable(critical, func(i, j int) bool { return critical[i].WSI > critical[j].WSI })
	for i := 0; i < len(critical) && i < TopCritical; i++ {
		s.CriticalVillages = append(s.CriticalVillages, critical[i].Name)
	}

	for _, t := range tankers {
		switch t.Status {
		case model.TankerEnRoute:
			s.ActiveTankers++
		case model.TankerAvailable:
			s.AvailableTankers++
		}
	}
	for _, l := range logs {
		if l.Status == model.DispatchPending {
			s.PendingDispatches++
		}
	}
	return s
}
