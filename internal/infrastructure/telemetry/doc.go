// Package telemetry ships client session metrics to InfluxDB.
//
// The Client wraps the InfluxDB v2 API with batched non-blocking writes,
// connection health checks, and an async error callback. The Sink adapts
// mqtt.Observer notifications into points, so connection churn, publish
// volume, and handler failure rates are queryable per agent.
//
// Telemetry is optional: when disabled in configuration, Connect returns
// ErrDisabled and the agent runs without the sink.
package telemetry
