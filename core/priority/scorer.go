// Package priority ranks villages for tanker dispatch.
package priority

import (
	"math"
	"sort"

	"github.com/kilianp07/hydroalert/core/model"
)

// Config holds the scoring weights and thresholds.
type Config struct {
	WSIWeight        float64 `json:"wsi_weight"`
	PopulationWeight float64 `json:"population_weight"`
	CriticalWSI      float64 `json:"critical_wsi"`
	ElevatedWSI      float64 `json:"elevated_wsi"`
	LargePopulation  int     `json:"large_population"`
	LowLevelPct      float64 `json:"low_level_pct"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.WSIWeight == 0 && c.PopulationWeight == 0 {
		c.WSIWeight, c.PopulationWeight = 0.7, 0.3
	}
	if c.CriticalWSI == 0 {
		c.CriticalWSI = 80
	}
	if c.ElevatedWSI == 0 {
		c.ElevatedWSI = 60
	}
	if c.LargePopulation == 0 {
		c.LargePopulation = 70000
	}
	if c.LowLevelPct == 0 {
		c.LowLevelPct = 20
	}
}

// Validate checks threshold ordering and weight signs.
func (c Config) Validate() error {
	if c.WSIWeight < 0 || c.PopulationWeight < 0 {
		return errNegativeWeight
	}
	if c.ElevatedWSI > c.CriticalWSI {
		return errThresholdOrder
	}
	return nil
}

// Result is the outcome of scoring one village.
type Result struct {
	PriorityScore    int `json:"priority_score"`
	SuggestedTankers int `json:"suggested_tankers"`
}

// Ranked pairs a village with its score.
type Ranked struct {
	Village model.Village `json:"village"`
	Result
}

// Score computes the dispatch priority of v relative to the largest
// population of the set it belongs to. A non-positive maxPopulation yields a
// zero population component. Suggested tankers are not capped.
func Score(v model.Village, maxPopulation int, cfg Config) Result {
	var normalized float64
	if maxPopulation > 0 {
		normalized = float64(v.Population) / float64(maxPopulation) * 100
	}
	score := math.Round(v.WSI*cfg.WSIWeight + normalized*cfg.PopulationWeight)

	var tankers int
	switch {
	case v.WSI > cfg.CriticalWSI:
		tankers = 2
	case v.WSI >= cfg.ElevatedWSI:
		tankers = 1
	}
	if v.Population > cfg.LargePopulation {
		tankers++
	}
	if v.CurrentLevelPct < cfg.LowLevelPct {
		tankers++
	}
	return Result{PriorityScore: int(score), SuggestedTankers: tankers}
}

// MaxPopulation returns the largest population in villages.
func MaxPopulation(villages []model.Village) int {
	var max int
	for _, v := range villages {
		if v.Population > max {
			max = v.Population
		}
	}
	return max
}

// Rank scores every village against the set and orders them by priority,
// then WSI, then id.
func Rank(villages []model.Village, cfg Config) []Ranked {
	maxPop := MaxPopulation(villages)
	out := make([]Ranked, 0, len(villages))
	for _, v := range villages {
		out = append(out, Ranked{Village: v, Result: Score(v, maxPop, cfg)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if a.Village.WSI != b.Village.WSI {
			return a.Village.WSI > b.Village.WSI
		}
		return a.Village.ID < b.Village.ID
	})
	return out
}
