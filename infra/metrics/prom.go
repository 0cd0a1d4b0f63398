package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/hydroalert/core/metrics"
)

// PromSink exposes village stress and dispatch activity as Prometheus metrics.
type PromSink struct {
	wsi      *prometheus.GaugeVec
	updates  *prometheus.CounterVec
	dispatch *prometheus.CounterVec
	alerts   *prometheus.CounterVec
}

// NewPromSink registers the sink metrics on the default Prometheus registerer.
// The /metrics server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	wsi, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "village_wsi",
		Help: "Latest water stress index per village",
	}, []string{"village_id", "village"}))
	if err != nil {
		return nil, err
	}
	updates, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "village_wsi_updates_total",
		Help: "WSI refreshes by direction of change",
	}, []string{"direction"}))
	if err != nil {
		return nil, err
	}
	dispatch, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_events_total",
		Help: "Dispatch state changes by action",
	}, []string{"action"}))
	if err != nil {
		return nil, err
	}
	alerts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_evaluations_total",
		Help: "Alert evaluations that produced payloads, by delivery result",
	}, []string{"sent"}))
	if err != nil {
		return nil, err
	}
	return &PromSink{wsi: wsi, updates: updates, dispatch: dispatch, alerts: alerts}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordStress sets the WSI gauge of every sampled village.
func (s *PromSink) RecordStress(samples []coremetrics.StressSample) error {
	for _, r := range samples {
		s.wsi.WithLabelValues(r.VillageID, r.Village).Set(r.NewWSI)
		s.updates.WithLabelValues(direction(r.OldWSI, r.NewWSI)).Inc()
	}
	return nil
}

// RecordDispatch counts a dispatch state change.
func (s *PromSink) RecordDispatch(ev coremetrics.DispatchSample) error {
	s.dispatch.WithLabelValues(ev.Action).Inc()
	return nil
}

// RecordAlert counts an alert evaluation.
func (s *PromSink) RecordAlert(ev coremetrics.AlertSample) error {
	s.alerts.WithLabelValues(strconv.FormatBool(ev.Sent)).Inc()
	return nil
}

func direction(old, cur float64) string {
	switch {
	case cur > old:
		return "up"
	case cur < old:
		return "down"
	default:
		return "flat"
	}
}
