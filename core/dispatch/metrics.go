package dispatch

import "github.com/prometheus/client_golang/prometheus"

var (
	logsCreated    *prometheus.CounterVec
	conflicts      *prometheus.CounterVec
	deliveries     prometheus.Counter
	tankerReleases prometheus.Counter
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Counter) {
	created := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_logs_created_total",
			Help: "Number of pending dispatch logs created",
		},
		[]string{"mode"},
	)
	conf := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_conflicts_total",
			Help: "Number of dispatch operations rejected because of a state conflict",
		},
		[]string{"op"},
	)
	done := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_completed_total",
			Help: "Number of dispatch logs marked delivered",
		},
	)
	freed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_tankers_released_total",
			Help: "Number of tankers returned to Available after their last delivery",
		},
	)
	return created, conf, done, freed
}

func init() {
	logsCreated, conflicts, deliveries, tankerReleases = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(logsCreated, conflicts, deliveries, tankerReleases)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	logsCreated, conflicts, deliveries, tankerReleases = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
