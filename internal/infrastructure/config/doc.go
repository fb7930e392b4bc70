// Package config loads and validates iobridge configuration.
//
// Configuration is read from a single YAML file, merged over hardcoded
// defaults, then overridden by IOBRIDGE_* environment variables. The result
// is an immutable snapshot constructed once at process start and passed
// explicitly into each component — there is no global configuration state.
//
// # Sections
//
//	broker:        MQTT connection (host, ports, TLS, credentials, timings)
//	certificates:  CA root, pinned server fingerprint, client cert material
//	outputs:       topic-pattern to output-name mappings for the outputs glue
//	journal:       SQLite event journal
//	telemetry:     optional InfluxDB metrics sink
//	logging:       level, format, destination
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Validation is aggregate: Load reports every problem in one error rather
// than failing on the first.
package config
