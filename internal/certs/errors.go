package certs

import "errors"

// Sentinel errors for certificate loading and validation.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNoCertificate is returned when the broker presents no certificate.
	ErrNoCertificate = errors.New("certs: no server certificate presented")

	// ErrChainVerification is returned when the server certificate chain
	// cannot be built to a trusted root.
	ErrChainVerification = errors.New("certs: chain verification failed")

	// ErrFingerprintMismatch is returned when the server certificate's
	// fingerprint does not equal the pinned value.
	ErrFingerprintMismatch = errors.New("certs: fingerprint mismatch")

	// ErrInvalidCA is returned when the configured CA file contains no
	// parseable PEM certificate.
	ErrInvalidCA = errors.New("certs: invalid CA certificate")

	// ErrMissingClientCertificate is returned when mutual TLS is requested
	// but the client certificate or key file is not configured.
	ErrMissingClientCertificate = errors.New("certs: client certificate required but not configured")

	// ErrKeyDecryption is returned when the client key's PEM block cannot
	// be decrypted with the configured passphrase.
	ErrKeyDecryption = errors.New("certs: client key decryption failed")
)
