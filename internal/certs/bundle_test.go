package certs

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edgepilot/iobridge/internal/infrastructure/config"
)

func writePEM(t *testing.T, dir, name, blockType string, der []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func writeKeyPair(t *testing.T, dir string, cert *x509.Certificate, key *ecdsa.PrivateKey) (certPath, keyPath string) {
	t.Helper()
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshalling key: %v", err)
	}
	certPath = writePEM(t, dir, "client.crt", "CERTIFICATE", cert.Raw)
	keyPath = writePEM(t, dir, "client.key", "EC PRIVATE KEY", keyDER)
	return certPath, keyPath
}

func TestLoadBundle_CAOnly(t *testing.T) {
	ca, _ := newTestCA(t)
	dir := t.TempDir()
	caPath := writePEM(t, dir, "ca.crt", "CERTIFICATE", ca.Raw)

	bundle, err := LoadBundle(config.CertificatesConfig{CAFile: caPath}, false)
	if err != nil {
		t.Fatalf("LoadBundle() error = %v", err)
	}

	if bundle.Roots == nil {
		t.Error("Roots = nil, want pool from CA file")
	}
	if len(bundle.ClientCertificates) != 0 {
		t.Errorf("ClientCertificates = %d entries, want 0", len(bundle.ClientCertificates))
	}
}

func TestLoadBundle_NoCAFile(t *testing.T) {
	bundle, err := LoadBundle(config.CertificatesConfig{}, false)
	if err != nil {
		t.Fatalf("LoadBundle() error = %v", err)
	}

	// nil pool means the platform trust store applies during chain building.
	if bundle.Roots != nil {
		t.Error("Roots != nil, want nil when no CA file configured")
	}
}

func TestLoadBundle_InvalidCA(t *testing.T) {
	dir := t.TempDir()
	caPath := filepath.Join(dir, "ca.crt")
	if err := os.WriteFile(caPath, []byte("not a certificate"), 0600); err != nil {
		t.Fatalf("writing ca file: %v", err)
	}

	_, err := LoadBundle(config.CertificatesConfig{CAFile: caPath}, false)
	if !errors.Is(err, ErrInvalidCA) {
		t.Errorf("LoadBundle() error = %v, want ErrInvalidCA", err)
	}
}

func TestLoadBundle_MissingCAFile(t *testing.T) {
	_, err := LoadBundle(config.CertificatesConfig{CAFile: "/nonexistent/ca.crt"}, false)
	if err == nil {
		t.Error("LoadBundle() expected error for missing CA file, got nil")
	}
}

func TestLoadBundle_ClientCertificate(t *testing.T) {
	ca, caKey := newTestCA(t)
	leaf, key := issueLeaf(t, ca, caKey, time.Now().Add(24*time.Hour))
	certPath, keyPath := writeKeyPair(t, t.TempDir(), leaf, key)

	bundle, err := LoadBundle(config.CertificatesConfig{
		ClientCertificateFile: certPath,
		ClientKeyFile:         keyPath,
	}, true)
	if err != nil {
		t.Fatalf("LoadBundle() error = %v", err)
	}

	if len(bundle.ClientCertificates) != 1 {
		t.Fatalf("ClientCertificates = %d entries, want 1", len(bundle.ClientCertificates))
	}
}

func TestLoadBundle_ClientCertificateNotConfigured(t *testing.T) {
	// Mutual TLS requested without certificate material must fail loudly,
	// not fall back to a one-way handshake.
	_, err := LoadBundle(config.CertificatesConfig{}, true)
	if !errors.Is(err, ErrMissingClientCertificate) {
		t.Errorf("LoadBundle() error = %v, want ErrMissingClientCertificate", err)
	}
}

func TestLoadBundle_EncryptedClientKey(t *testing.T) {
	ca, caKey := newTestCA(t)
	leaf, key := issueLeaf(t, ca, caKey, time.Now().Add(24*time.Hour))

	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshalling key: %v", err)
	}

	//nolint:staticcheck // exercising the legacy encrypted-key path
	block, err := x509.EncryptPEMBlock(rand.Reader, "EC PRIVATE KEY", keyDER, []byte("hunter2"), x509.PEMCipherAES256)
	if err != nil {
		t.Fatalf("encrypting key: %v", err)
	}

	dir := t.TempDir()
	certPath := writePEM(t, dir, "client.crt", "CERTIFICATE", leaf.Raw)
	keyPath := filepath.Join(dir, "client.key")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0600); err != nil {
		t.Fatalf("writing key: %v", err)
	}

	cfg := config.CertificatesConfig{
		ClientCertificateFile: certPath,
		ClientKeyFile:         keyPath,
		ClientKeyPassword:     "hunter2",
	}

	bundle, err := LoadBundle(cfg, true)
	if err != nil {
		t.Fatalf("LoadBundle() with correct passphrase error = %v", err)
	}
	if len(bundle.ClientCertificates) != 1 {
		t.Errorf("ClientCertificates = %d entries, want 1", len(bundle.ClientCertificates))
	}

	cfg.ClientKeyPassword = "wrong"
	_, err = LoadBundle(cfg, true)
	if !errors.Is(err, ErrKeyDecryption) {
		t.Errorf("LoadBundle() with wrong passphrase error = %v, want ErrKeyDecryption", err)
	}
}
