// Package events defines the engine events emitted on the event bus.
//
// Available event types:
//   - StressEvent: a village WSI was recomputed by the aggregator
//   - DispatchEvent: a dispatch log was created or completed, or a tanker changed state
//   - AlertEvent: the alert trigger evaluated a batch
package events
