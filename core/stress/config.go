package stress

// Config defines stress batch settings.
type Config struct {
	Weights Weights `json:"weights"`
	// HistoryLimit caps the environmental records fetched per village.
	HistoryLimit int `json:"history_limit"`
	// Workers bounds how many villages are refreshed concurrently.
	Workers int `json:"workers"`
	// IntervalSeconds schedules the periodic batch; zero disables it.
	IntervalSeconds int `json:"interval_seconds"`
	// SimulateWSI is the score forced by a drought simulation.
	SimulateWSI float64 `json:"simulate_wsi"`
}

// SetDefaults fills unset fields. Weight fields left at zero take the
// production value.
func (c *Config) SetDefaults() {
	d := DefaultWeights()
	w := &c.Weights
	for _, p := range []struct {
		field *float64
		def   float64
	}{
		{&w.RainfallMax, d.RainfallMax},
		{&w.RainfallPerMM, d.RainfallPerMM},
		{&w.GroundwaterMax, d.GroundwaterMax},
		{&w.GroundwaterScaleM, d.GroundwaterScaleM},
		{&w.GroundwaterDropPenalty, d.GroundwaterDropPenalty},
		{&w.PopulationMax, d.PopulationMax},
		{&w.PopulationScale, d.PopulationScale},
		{&w.CapacityWeight, d.CapacityWeight},
		{&w.NoDataBase, d.NoDataBase},
		{&w.NoDataPerThousand, d.NoDataPerThousand},
	} {
		if *p.field == 0 {
			*p.field = p.def
		}
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 30
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.SimulateWSI <= 0 {
		c.SimulateWSI = 85
	}
}

// Validate checks the configuration after defaults were applied.
func (c Config) Validate() error {
	return c.Weights.Validate()
}
