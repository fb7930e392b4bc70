package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/edgepilot/iobridge/internal/certs"
	"github.com/edgepilot/iobridge/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is the maximum time to wait for one connect attempt.
	defaultConnectTimeout = 10 * time.Second

	// defaultTokenTimeout is the maximum time to wait for subscribe and
	// unsubscribe acknowledgments.
	defaultTokenTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on
	// disconnect, in milliseconds.
	defaultDisconnectQuiesce = 1000

	// tlsMinVersion pins secure sessions to the latest supported protocol.
	tlsMinVersion = tls.VersionTLS13
)

// buildClientOptions creates paho MQTT options from the broker config.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// and the matching port, based on TLS)
//   - Client ID (generated when not configured)
//   - Authentication credentials (if provided)
//   - Protocol version, keep-alive interval, clean session mode
//   - TLS configuration (if provided)
//
// paho's built-in retry machinery is disabled: the connection manager owns
// reconnection, and two competing retry loops would fight over the session.
func buildClientOptions(cfg config.BrokerConfig, tlsConfig *tls.Config) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	scheme, port := "tcp", cfg.Port
	if cfg.TLS {
		scheme, port = "ssl", cfg.SecurePort
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port))

	opts.SetClientID(clientID(cfg.ClientID))

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	opts.SetProtocolVersion(uint(cfg.ProtocolVersion))
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(cfg.KeepAlive())

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	return opts
}

// clientID returns the configured client ID, or a generated one.
func clientID(configured string) string {
	if configured != "" {
		return configured
	}
	return "iobridge-" + uuid.NewString()[:8]
}

// buildTLSConfig assembles the TLS configuration for a secure session.
//
// Chain building and fingerprint pinning are performed by the injected
// validator; the standard library's own verification (system roots plus
// hostname check) is switched off in its favour, which requires
// InsecureSkipVerify together with VerifyPeerCertificate.
func buildTLSConfig(bundle *certs.Bundle, validator *certs.Validator) *tls.Config {
	return &tls.Config{
		MinVersion:            tlsMinVersion,
		Certificates:          bundle.ClientCertificates,
		InsecureSkipVerify:    true, //nolint:gosec // verification delegated to the validator
		VerifyPeerCertificate: validator.VerifyPeerCertificate,
	}
}
