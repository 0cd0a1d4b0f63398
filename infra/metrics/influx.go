package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/hydroalert/core/metrics"
	"github.com/kilianp07/hydroalert/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving the time series.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes WSI, dispatch and alert points to InfluxDB using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings InfluxDB and returns a NopSink when the
// health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordStress writes one village_wsi point per sample.
func (s *InfluxSink) RecordStress(samples []coremetrics.StressSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(samples))
	for _, r := range samples {
		points = append(points, write.NewPointWithMeasurement("village_wsi").
			AddTag("village_id", r.VillageID).
			AddTag("village", r.Village).
			AddField("wsi", round2(r.NewWSI)).
			AddField("previous_wsi", round2(r.OldWSI)).
			AddField("delta", round2(r.NewWSI-r.OldWSI)).
			SetTime(r.Time))
	}
	if len(points) == 0 {
		return nil
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordDispatch writes a dispatch_event point.
func (s *InfluxSink) RecordDispatch(ev coremetrics.DispatchSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_event").
		AddTag("action", ev.Action).
		AddTag("tanker_id", ev.TankerID)
	if ev.VillageID != "" {
		p = p.AddTag("village_id", ev.VillageID)
	}
	p = p.AddField("log_id", ev.LogID).SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAlert writes an alert_evaluation point.
func (s *InfluxSink) RecordAlert(ev coremetrics.AlertSample) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("alert_evaluation").
		AddField("villages", len(ev.Villages)).
		AddField("sent", ev.Sent).
		AddField("error", ev.Error).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
