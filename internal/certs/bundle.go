package certs

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/edgepilot/iobridge/internal/infrastructure/config"
)

// Bundle holds the certificate material loaded once at startup and cached
// for the process lifetime.
type Bundle struct {
	// Roots is the trusted root pool from the configured CA file, or nil
	// when no CA file is configured (platform trust store applies).
	Roots *x509.CertPool

	// ClientCertificates holds the client certificate/key pair presented
	// for mutual TLS. Empty when mutual TLS is not in use.
	ClientCertificates []tls.Certificate
}

// LoadBundle reads the certificate material named in the configuration.
//
// A missing or unparseable file is a fatal configuration error: the caller
// must not proceed to connect, since doing so would silently downgrade the
// authentication the deployment asked for.
//
// Parameters:
//   - cfg: Certificate file locations and key passphrase
//   - clientCertificate: Whether mutual TLS is requested
//
// Returns:
//   - *Bundle: Loaded material, cached by the caller for the process lifetime
//   - error: Fatal configuration error
func LoadBundle(cfg config.CertificatesConfig, clientCertificate bool) (*Bundle, error) {
	bundle := &Bundle{}

	if cfg.CAFile != "" {
		roots, err := loadRootPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		bundle.Roots = roots
	}

	if clientCertificate {
		if cfg.ClientCertificateFile == "" || cfg.ClientKeyFile == "" {
			return nil, ErrMissingClientCertificate
		}
		cert, err := loadKeyPair(cfg.ClientCertificateFile, cfg.ClientKeyFile, cfg.ClientKeyPassword)
		if err != nil {
			return nil, err
		}
		bundle.ClientCertificates = []tls.Certificate{cert}
	}

	return bundle, nil
}

// loadRootPool reads a PEM CA file into a certificate pool.
func loadRootPool(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCA, path)
	}
	return pool, nil
}

// loadKeyPair reads a PEM certificate/key pair, decrypting the key when a
// passphrase is configured.
func loadKeyPair(certFile, keyFile, password string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading client certificate: %w", err)
	}

	keyPEM, err := os.ReadFile(keyFile)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("reading client key: %w", err)
	}

	if password != "" {
		keyPEM, err = decryptKeyPEM(keyPEM, password)
		if err != nil {
			return tls.Certificate{}, err
		}
	}

	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parsing client certificate pair: %w", err)
	}
	return cert, nil
}

// decryptKeyPEM decrypts a legacy RFC 1423 encrypted PEM key block.
// Unencrypted keys pass through untouched, so a configured passphrase does
// not break deployments that later rotate to plaintext key files.
func decryptKeyPEM(keyPEM []byte, password string) ([]byte, error) {
	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in key file", ErrKeyDecryption)
	}

	//nolint:staticcheck // RFC 1423 keys are what existing field hardware ships with
	if !x509.IsEncryptedPEMBlock(block) {
		return keyPEM, nil
	}

	//nolint:staticcheck // see above
	der, err := x509.DecryptPEMBlock(block, []byte(password))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDecryption, err)
	}

	return pem.EncodeToMemory(&pem.Block{Type: block.Type, Bytes: der}), nil
}
