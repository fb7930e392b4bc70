// Package certs implements broker certificate validation for iobridge.
//
// Authentication of the broker is two-layered: the server certificate must
// chain to a configured trust root (or the platform store when none is
// configured), and its SHA-256 fingerprint must equal a pinned value from
// configuration. Both layers must pass; both are evaluated on every
// handshake so that all failures are reported.
//
// Revocation is never checked — the device is expected to operate offline —
// and hostname verification is intentionally replaced by the fingerprint
// pin. The Validator plugs into tls.Config via VerifyPeerCertificate with
// InsecureSkipVerify enabled, which is the supported pattern for replacing
// the standard library's verification entirely.
//
// Certificate material (CA root, client certificate/key for mutual TLS) is
// loaded once at startup into a Bundle and cached for the process lifetime.
// Missing material when mutual TLS is requested is a fatal configuration
// error, never a silent downgrade.
package certs
