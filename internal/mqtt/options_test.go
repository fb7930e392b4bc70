package mqtt

import (
	"crypto/tls"
	"strings"
	"testing"

	"github.com/edgepilot/iobridge/internal/certs"
)

func TestBuildClientOptionsPlaintext(t *testing.T) {
	opts := buildClientOptions(testBrokerConfig(), nil)

	if len(opts.Servers) != 1 {
		t.Fatalf("Servers count = %d, want 1", len(opts.Servers))
	}
	if got, want := opts.Servers[0].String(), "tcp://broker.local:1883"; got != want {
		t.Errorf("broker URL = %q, want %q", got, want)
	}
	if opts.ClientID != "test-client" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "test-client")
	}
	if !opts.CleanSession {
		t.Error("CleanSession = false, want true")
	}
	if opts.AutoReconnect {
		t.Error("AutoReconnect = true, want false")
	}
	if opts.ConnectRetry {
		t.Error("ConnectRetry = true, want false")
	}
	if opts.ProtocolVersion != 4 {
		t.Errorf("ProtocolVersion = %d, want 4", opts.ProtocolVersion)
	}
	if opts.KeepAlive != 30 {
		t.Errorf("KeepAlive = %d, want 30", opts.KeepAlive)
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without TLS enabled")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testBrokerConfig()
	cfg.TLS = true
	cfg.Username = "gateway"
	cfg.Password = "secret"
	tlsConfig := &tls.Config{MinVersion: tlsMinVersion}

	opts := buildClientOptions(cfg, tlsConfig)

	if got, want := opts.Servers[0].String(), "ssl://broker.local:8883"; got != want {
		t.Errorf("broker URL = %q, want %q", got, want)
	}
	if opts.Username != "gateway" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want gateway/secret", opts.Username, opts.Password)
	}
	if opts.TLSConfig != tlsConfig {
		t.Error("TLSConfig not passed through to the client options")
	}
}

func TestBuildClientOptionsGeneratedClientID(t *testing.T) {
	cfg := testBrokerConfig()
	cfg.ClientID = ""

	opts := buildClientOptions(cfg, nil)

	if !strings.HasPrefix(opts.ClientID, "iobridge-") {
		t.Fatalf("generated ClientID = %q, want iobridge- prefix", opts.ClientID)
	}
	if suffix := strings.TrimPrefix(opts.ClientID, "iobridge-"); len(suffix) != 8 {
		t.Errorf("generated ClientID suffix = %q, want 8 characters", suffix)
	}
}

func TestBuildTLSConfig(t *testing.T) {
	validator := certs.NewValidator(nil, "ab:cd", nopLogger{})
	bundle := &certs.Bundle{ClientCertificates: []tls.Certificate{{}}}

	cfg := buildTLSConfig(bundle, validator)

	if cfg.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %#x, want TLS 1.3", cfg.MinVersion)
	}
	if !cfg.InsecureSkipVerify {
		t.Error("InsecureSkipVerify = false, want true (validator owns verification)")
	}
	if cfg.VerifyPeerCertificate == nil {
		t.Error("VerifyPeerCertificate not wired to the validator")
	}
	if len(cfg.Certificates) != 1 {
		t.Errorf("Certificates count = %d, want 1", len(cfg.Certificates))
	}
}
