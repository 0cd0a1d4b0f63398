package metrics

// MultiSink fans records out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordStress forwards samples to all sinks, returning the first error.
func (m *MultiSink) RecordStress(s []StressSample) error {
	for _, sink := range m.Sinks {
		if err := sink.RecordStress(s); err != nil {
			return err
		}
	}
	return nil
}

// RecordDispatch forwards to the sinks that record dispatches.
func (m *MultiSink) RecordDispatch(ev DispatchSample) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(DispatchRecorder); ok {
			if err := r.RecordDispatch(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAlert forwards to the sinks that record alerts.
func (m *MultiSink) RecordAlert(ev AlertSample) error {
	for _, sink := range m.Sinks {
		if r, ok := sink.(AlertRecorder); ok {
			if err := r.RecordAlert(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
