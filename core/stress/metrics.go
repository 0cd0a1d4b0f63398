package stress

import "github.com/prometheus/client_golang/prometheus"

var (
	batchDuration   prometheus.Histogram
	villagesUpdated prometheus.Counter
	villageFailures *prometheus.CounterVec
)

func newCollectors() (prometheus.Histogram, prometheus.Counter, *prometheus.CounterVec) {
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stress_batch_duration_seconds",
		Help:    "Duration of a full stress batch",
		Buckets: prometheus.DefBuckets,
	})
	upd := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stress_villages_updated_total",
		Help: "Number of villages whose WSI was recomputed and persisted",
	})
	fail := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stress_batch_failures_total",
		Help: "Number of villages skipped by a stress batch",
	}, []string{"stage"})
	return dur, upd, fail
}

func init() {
	batchDuration, villagesUpdated, villageFailures = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers stress metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(batchDuration, villagesUpdated, villageFailures)
}

// ResetMetrics reinitializes collectors for tests and registers them on reg
// when it is not nil.
func ResetMetrics(reg prometheus.Registerer) {
	batchDuration, villagesUpdated, villageFailures = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
