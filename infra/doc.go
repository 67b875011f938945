// Package infra holds the adapters behind the fleet engine: the MQTT
// ingester, the websocket and Redis notifiers, the SQLite decision log and
// the Prometheus and InfluxDB metric sinks. Core packages never import them.
package infra
