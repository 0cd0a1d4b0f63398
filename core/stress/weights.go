package stress

import "fmt"

// Weights holds the point budgets and scale constants of the WSI formula.
type Weights struct {
	RainfallMax            float64 `json:"rainfall_max"`
	RainfallPerMM          float64 `json:"rainfall_per_mm"`
	GroundwaterMax         float64 `json:"groundwater_max"`
	GroundwaterScaleM      float64 `json:"groundwater_scale_m"`
	GroundwaterDropPenalty float64 `json:"groundwater_drop_penalty"`
	PopulationMax          float64 `json:"population_max"`
	PopulationScale        float64 `json:"population_scale"`
	CapacityWeight         float64 `json:"capacity_weight"`
	NoDataBase             float64 `json:"no_data_base"`
	NoDataPerThousand      float64 `json:"no_data_per_thousand"`
}

// DefaultWeights returns the production constants: 40 points of rainfall
// deficit, 40 of groundwater depth, 20 of population pressure and half a
// point per missing storage percent.
func DefaultWeights() Weights {
	return Weights{
		RainfallMax:            40,
		RainfallPerMM:          2,
		GroundwaterMax:         40,
		GroundwaterScaleM:      40,
		GroundwaterDropPenalty: 5,
		PopulationMax:          20,
		PopulationScale:        100000,
		CapacityWeight:         0.5,
		NoDataBase:             30,
		NoDataPerThousand:      0.5,
	}
}

// Validate rejects weights that would divide by zero.
func (w Weights) Validate() error {
	if w.GroundwaterScaleM <= 0 {
		return fmt.Errorf("groundwater_scale_m must be positive")
	}
	if w.PopulationScale <= 0 {
		return fmt.Errorf("population_scale must be positive")
	}
	return nil
}
