package certs

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"fmt"
	"strings"
)

// Logger is the minimal logging interface the validator reports through.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Validator checks a broker's server certificate against a trusted root and
// a pinned fingerprint.
//
// The validator is stateless and safe for concurrent use; one instance is
// built at startup and invoked during every TLS handshake.
//
// Trust policy:
//   - When a root pool is configured, the chain must terminate at one of
//     those roots. When it is nil, the platform trust store is used.
//   - Revocation is not checked. The device may be offline, so OCSP/CRL
//     lookups cannot be relied upon.
//   - Hostname verification is replaced by the pinned fingerprint check.
type Validator struct {
	roots       *x509.CertPool
	fingerprint string
	logger      Logger

	// onReject, when set, receives the subject and failure reasons of every
	// rejected certificate in addition to the logger diagnostics.
	onReject func(subject string, reasons []string)
}

// NewValidator creates a Validator.
//
// Parameters:
//   - roots: Trusted root pool, or nil to use the platform trust store
//   - fingerprint: Expected SHA-256 fingerprint of the leaf certificate,
//     hex encoded; case and separators (colons, spaces) are ignored
//   - logger: Destination for diagnostic reports (may be nil)
func NewValidator(roots *x509.CertPool, fingerprint string, logger Logger) *Validator {
	return &Validator{
		roots:       roots,
		fingerprint: NormalizeFingerprint(fingerprint),
		logger:      logger,
	}
}

// Validate checks the leaf certificate's chain and fingerprint.
//
// Both checks always run, so a handshake that fails on both counts reports
// both failures rather than stopping at the first. The chain failure takes
// precedence in the returned error.
//
// Returns:
//   - error: nil if both checks pass, otherwise a wrapped
//     ErrChainVerification or ErrFingerprintMismatch
func (v *Validator) Validate(leaf *x509.Certificate, intermediates []*x509.Certificate) error {
	chainErr := v.verifyChain(leaf, intermediates)
	pinErr := v.verifyFingerprint(leaf)

	if chainErr != nil {
		return chainErr
	}
	return pinErr
}

// SetOnReject sets a callback receiving the subject and every failure reason
// of a rejected certificate. Must be set before the validator is wired into
// a handshake.
func (v *Validator) SetOnReject(fn func(subject string, reasons []string)) {
	v.onReject = fn
}

func (v *Validator) reportReject(leaf *x509.Certificate, reasons []string) {
	if v.onReject != nil {
		v.onReject(leaf.Subject.String(), reasons)
	}
}

// VerifyPeerCertificate adapts Validate to the tls.Config callback signature.
//
// Wire it together with InsecureSkipVerify=true: the standard library's
// verification (system roots plus hostname) is replaced wholesale by the
// custom-trust chain build and the pinned fingerprint comparison.
func (v *Validator) VerifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoCertificate
	}

	parsed := make([]*x509.Certificate, 0, len(rawCerts))
	for i, raw := range rawCerts {
		cert, err := x509.ParseCertificate(raw)
		if err != nil {
			return fmt.Errorf("%w: parsing certificate %d: %w", ErrChainVerification, i, err)
		}
		parsed = append(parsed, cert)
	}

	return v.Validate(parsed[0], parsed[1:])
}

// verifyChain builds the certificate chain for the leaf.
func (v *Validator) verifyChain(leaf *x509.Certificate, intermediates []*x509.Certificate) error {
	opts := x509.VerifyOptions{
		Roots: v.roots,
	}
	if len(intermediates) > 0 {
		opts.Intermediates = x509.NewCertPool()
		for _, cert := range intermediates {
			opts.Intermediates.AddCert(cert)
		}
	}

	if _, err := leaf.Verify(opts); err != nil {
		reasons := chainReasons(err)
		for _, reason := range reasons {
			if v.logger != nil {
				v.logger.Error("certificate chain rejected",
					"subject", leaf.Subject.String(),
					"reason", reason,
				)
			}
		}
		v.reportReject(leaf, reasons)
		return fmt.Errorf("%w: %w", ErrChainVerification, err)
	}

	return nil
}

// verifyFingerprint compares the leaf's SHA-256 fingerprint to the pinned value.
func (v *Validator) verifyFingerprint(leaf *x509.Certificate) error {
	actual := Fingerprint(leaf)
	if actual == v.fingerprint {
		return nil
	}

	if v.logger != nil {
		v.logger.Warn("certificate fingerprint mismatch",
			"subject", leaf.Subject.String(),
			"expected", v.fingerprint,
			"actual", actual,
		)
	}
	v.reportReject(leaf, []string{
		fmt.Sprintf("fingerprint mismatch: expected %s, got %s", v.fingerprint, actual),
	})
	return fmt.Errorf("%w: expected %s, got %s", ErrFingerprintMismatch, v.fingerprint, actual)
}

// chainReasons expands a chain verification error into individual reasons
// for diagnostics. The standard library reports one failure at a time, so
// this usually yields a single entry, but hybrid errors (expired leaf signed
// by an unknown root) surface whichever check tripped first.
func chainReasons(err error) []string {
	var reasons []string
	switch e := err.(type) { //nolint:errorlint // inspecting the concrete verification error
	case x509.CertificateInvalidError:
		reasons = append(reasons, fmt.Sprintf("certificate invalid: %v", e))
	case x509.UnknownAuthorityError:
		reasons = append(reasons, fmt.Sprintf("unknown authority: %v", e))
	case x509.HostnameError:
		reasons = append(reasons, fmt.Sprintf("hostname mismatch: %v", e))
	default:
		reasons = append(reasons, err.Error())
	}
	return reasons
}

// Fingerprint returns the SHA-256 fingerprint of the certificate's DER
// encoding as lower-case hex without separators.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// NormalizeFingerprint lower-cases a fingerprint string and strips the
// separators commonly pasted from certificate inspection tools.
func NormalizeFingerprint(fingerprint string) string {
	replacer := strings.NewReplacer(":", "", " ", "", "-", "")
	return strings.ToLower(replacer.Replace(fingerprint))
}
