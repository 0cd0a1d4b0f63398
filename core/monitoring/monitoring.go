// Package monitoring routes unexpected failures to an error tracker. The
// engine reports store and notifier failures here; validation and conflict
// errors are expected outcomes and are not reported.
package monitoring

import (
	"sync"
	"time"

	"github.com/kilianp07/hydroalert/core/apperr"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Recover()
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Recover()                                  {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	get().CaptureException(err, tags)
}

// CaptureUpstream records err only when it is an upstream failure or an
// unclassified error.
func CaptureUpstream(op string, err error, tags map[string]string) {
	if err == nil {
		return
	}
	switch apperr.KindOf(err) {
	case apperr.KindUpstream, apperr.KindUnknown:
	default:
		return
	}
	t := map[string]string{"op": op}
	for k, v := range tags {
		t[k] = v
	}
	get().CaptureException(err, t)
}

// Recover captures panics in goroutines.
func Recover() { get().Recover() }

// Flush flushes buffered events.
func Flush(d time.Duration) { get().Flush(d) }
