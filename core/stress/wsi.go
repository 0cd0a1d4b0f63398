// Package stress computes the Water Stress Index of villages and drives the
// batch that refreshes it.
package stress

import (
	"math"
	"sort"

	"github.com/kilianp07/hydroalert/core/model"
)

// Factors is the per-component breakdown of a WSI computation. Factors are
// zero when the village has no environmental record.
type Factors struct {
	Rainfall    float64 `json:"rainfall"`
	Groundwater float64 `json:"groundwater"`
	Population  float64 `json:"population"`
	Capacity    float64 `json:"capacity"`
	Raw         float64 `json:"raw"`
	WSI         float64 `json:"wsi"`
	HasRecords  bool    `json:"has_records"`
}

// ComputeWSI returns the stress score of the village in [0,100], rounded to two
// decimals. It is pure: records is not modified.
func ComputeWSI(v model.Village, records []model.EnvironmentalRecord, w Weights) float64 {
	return Breakdown(v, records, w).WSI
}

// Breakdown computes the WSI and returns each contributing factor.
func Breakdown(v model.Village, records []model.EnvironmentalRecord, w Weights) Factors {
	pop := float64(v.Population)
	if len(records) == 0 {
		raw := w.NoDataBase + pop/1000*w.NoDataPerThousand
		return Factors{Raw: raw, WSI: round2(math.Min(100, raw))}
	}

	sorted := append([]model.EnvironmentalRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RecordDate.After(sorted[j].RecordDate) })
	latest := sorted[0]

	f := Factors{HasRecords: true}
	f.Rainfall = math.Max(0, w.RainfallMax-latest.RainfallMM*w.RainfallPerMM)
	f.Groundwater = clamp(latest.GroundwaterLevelM/w.GroundwaterScaleM*w.GroundwaterMax, 0, w.GroundwaterMax)
	if len(sorted) > 1 {
		// The drop penalty is added after the clamp and may push the factor
		// above GroundwaterMax; only the final clamp bounds it.
		if drop := latest.GroundwaterLevelM - sorted[1].GroundwaterLevelM; drop > 0 {
			f.Groundwater += drop * w.GroundwaterDropPenalty
		}
	}
	f.Population = math.Min(w.PopulationMax, pop/w.PopulationScale*w.PopulationMax)
	f.Capacity = (100 - v.CurrentLevelPct) * w.CapacityWeight
	f.Raw = f.Rainfall + f.Groundwater + f.Population + f.Capacity
	f.WSI = round2(clamp(f.Raw, 0, 100))
	return f
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
