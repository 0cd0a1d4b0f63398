// Package stressbatch runs the stress batch on a fixed interval.
package stressbatch

import (
	"context"
	"time"

	"github.com/kilianp07/hydroalert/core/monitoring"
	"github.com/kilianp07/hydroalert/infra/logger"
)

// BatchFunc runs one stress batch.
type BatchFunc func(ctx context.Context) error

// Runner calls a BatchFunc every Interval. Runs never overlap: a batch that
// outlasts the interval delays the next tick.
type Runner struct {
	Interval time.Duration
	Batch    BatchFunc
	// RunAtStart triggers one batch before the first tick.
	RunAtStart bool
	Log        logger.Logger
}

// Run blocks until ctx is canceled. A failed batch is logged and reported;
// the runner keeps going.
func (r Runner) Run(ctx context.Context) {
	if r.Interval <= 0 || r.Batch == nil {
		return
	}
	if r.Log == nil {
		r.Log = logger.NopLogger{}
	}
	if r.RunAtStart {
		r.once(ctx)
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.once(ctx)
		}
	}
}

func (r Runner) once(ctx context.Context) {
	start := time.Now()
	if err := r.Batch(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.Log.Errorw("stress batch failed", err, nil)
		monitoring.CaptureUpstream("stress batch", err, map[string]string{"job": "stressbatch"})
		return
	}
	r.Log.Debugw("stress batch done", map[string]any{"duration_ms": time.Since(start).Milliseconds()})
}
