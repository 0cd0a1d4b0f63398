package metrics

import "time"

// StressSample is the WSI of one village after a refresh.
type StressSample struct {
	VillageID string
	Village   string
	OldWSI    float64
	NewWSI    float64
	Time      time.Time
}

// MetricsSink records stress samples.
type MetricsSink interface {
	RecordStress(samples []StressSample) error
}

// DispatchSample is one dispatch state change.
type DispatchSample struct {
	Action    string
	LogID     string
	TankerID  string
	VillageID string
	Time      time.Time
}

// DispatchRecorder records dispatch state changes.
type DispatchRecorder interface {
	RecordDispatch(ev DispatchSample) error
}

// AlertSample describes one alert evaluation that produced payloads.
type AlertSample struct {
	Villages []string
	Sent     bool
	Error    string
	Time     time.Time
}

// AlertRecorder records alert evaluations.
type AlertRecorder interface {
	RecordAlert(ev AlertSample) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordStress([]StressSample) error    { return nil }
func (NopSink) RecordDispatch(DispatchSample) error { return nil }
func (NopSink) RecordAlert(AlertSample) error       { return nil }
