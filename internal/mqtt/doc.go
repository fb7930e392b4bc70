// Package mqtt provides the managed broker client used by iobridge.
//
// The package wraps the Eclipse Paho client with the behaviour an unattended
// edge agent needs: pattern-based subscription dispatch with per-handler
// isolation, certificate-validated TLS sessions, and an indefinite
// fixed-delay reconnect loop that restores every registered subscription on
// each successful connect.
//
// Applications interact with three pieces:
//
//   - Client, the composition root: register handlers with Subscribe, then
//     Start, Publish, and Stop.
//   - Observer, the diagnostic surface: connection transitions, publish
//     completions, and handler failures are reported asynchronously rather
//     than returned from calls.
//   - Message and QoS, the wire-facing value types shared with handlers.
//
// Only configuration and argument errors surface synchronously; everything
// recoverable is retried or isolated internally.
package mqtt
