package stressbatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerTicks(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r := Runner{
		Interval: 5 * time.Millisecond,
		Batch: func(context.Context) error {
			calls.Add(1)
			return nil
		},
	}
	go func() {
		r.Run(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop after cancel")
	}
}

func TestRunnerRunAtStartAndSurvivesErrors(t *testing.T) {
	var calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := Runner{
		Interval:   time.Hour,
		RunAtStart: true,
		Batch: func(context.Context) error {
			calls.Add(1)
			return errors.New("store down")
		},
	}
	go r.Run(ctx)
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
}

func TestRunnerDisabled(t *testing.T) {
	called := false
	Runner{Batch: func(context.Context) error { called = true; return nil }}.Run(context.Background())
	assert.False(t, called)
	Runner{Interval: time.Millisecond}.Run(context.Background())
}
