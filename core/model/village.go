package model

import (
	"math"
	"time"
)

// Location is a WGS84 coordinate in decimal degrees.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Village is a settlement monitored for water stress.
type Village struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	District           string    `json:"district"`
	Population         int       `json:"population"`
	Location           Location  `json:"location"`
	BaseCapacityLiters float64   `json:"base_capacity_liters"`
	CurrentLevelPct    float64   `json:"current_level_pct"` // storage level between 0 and 100
	WSI                float64   `json:"wsi"`               // water stress index between 0 and 100
	UpdatedAt          time.Time `json:"updated_at"`
}

// ClampWSI bounds a stress score to the [0,100] range.
func ClampWSI(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// EnvironmentalRecord is one dated observation for a village. Records are
// append-only.
type EnvironmentalRecord struct {
	ID                 string    `json:"id"`
	VillageID          string    `json:"village_id"`
	RecordDate         time.Time `json:"record_date"`
	RainfallMM         float64   `json:"rainfall_mm"`
	GroundwaterLevelM  float64   `json:"groundwater_level_m"` // depth to the water table
	TemperatureCelsius float64   `json:"temperature_c"`
}
