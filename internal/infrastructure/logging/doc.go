// Package logging provides structured logging for iobridge.
//
// It wraps Go's standard log/slog package to give consistent, structured
// log output across the whole process.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the logging section of config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "broker", cfg.Broker.Host)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets: broker passwords and key passphrases must not appear
// in log fields.
package logging
