// Package infra holds the technical adapters of the engine: record stores,
// alert notifiers, metrics sinks, monitoring and logging. Adapters depend
// only on the contracts declared under core.
package infra
