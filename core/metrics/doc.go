// Package metrics defines the observability sinks used by the telemetry
// store, the alerting monitor and the allocation orchestrator. Concrete
// sinks (Prometheus, InfluxDB) live in infra/metrics and register themselves
// with the factory so they can be selected from configuration. Several
// configured sinks are combined into a MultiSink automatically.
package metrics
