// Package metrics defines the sinks that record engine activity for
// observability. Sinks such as the Prometheus and InfluxDB implementations
// in infra/metrics record WSI samples, dispatch transitions and alerts and
// can be combined with NewMultiSink. NewMetricsSink returns a MultiSink
// automatically when several sinks are configured.
package metrics
