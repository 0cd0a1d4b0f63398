package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	coremetrics "github.com/kilianp07/hydroalert/core/metrics"
	coremon "github.com/kilianp07/hydroalert/core/monitoring"
	"github.com/kilianp07/hydroalert/infra/logger"
	"github.com/kilianp07/hydroalert/infra/metrics"
	"github.com/kilianp07/hydroalert/infra/monitoring"
	"github.com/kilianp07/hydroalert/jobs/stressbatch"
)

// Service runs the engine behind the HTTP API together with the periodic
// stress batch and the metrics pipeline.
type Service struct {
	Engine  *Engine
	handler http.Handler
	sink    coremetrics.MetricsSink
	log     logger.Logger
}

// NewService initializes monitoring and the metrics sink for e. handler is
// the API router served on cfg.API.Addr.
func NewService(e *Engine, handler http.Handler) (*Service, error) {
	cfg := e.Config()
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	return &Service{Engine: e, handler: handler, sink: sink, log: logger.New("service")}, nil
}

// Run starts every component and blocks until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	cfg := s.Engine.Config()
	ln, err := net.Listen("tcp", cfg.API.Addr)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing API listener.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	cfg := s.Engine.Config()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	waitCollector := metrics.StartEventCollector(ctx, metrics.Sources{
		Stress:   s.Engine.StressEvents,
		Dispatch: s.Engine.DispatchEvents,
		Alerts:   s.Engine.AlertEvents,
	}, s.sink, logger.New("metrics"))

	var wg sync.WaitGroup
	if cfg.Metrics.PrometheusAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if cfg.Stress.IntervalSeconds > 0 {
		runner := stressbatch.Runner{
			Interval:   time.Duration(cfg.Stress.IntervalSeconds) * time.Second,
			RunAtStart: true,
			Log:        logger.New("stressbatch"),
			Batch: func(ctx context.Context) error {
				rep, err := s.Engine.RunStressBatch(ctx)
				if err == nil && rep.AlertError != "" {
					s.log.Warnf("stress batch alert not delivered: %s", rep.AlertError)
				}
				return err
			},
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
	}

	srv := &http.Server{Handler: s.handler, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() {
		s.log.Infof("api listening on %s", ln.Addr())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warnf("api shutdown: %v", err)
	}
	stop()
	cancel()
	wg.Wait()
	waitCollector()
	coremon.Flush(2 * time.Second)
	return serveErr
}

// Close releases the engine and the metrics sink.
func (s *Service) Close() error {
	err := s.Engine.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return err
}
