package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for iobridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Broker       BrokerConfig       `yaml:"broker"`
	Certificates CertificatesConfig `yaml:"certificates"`
	Outputs      []OutputMapping    `yaml:"outputs"`
	Journal      JournalConfig      `yaml:"journal"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// BrokerConfig contains MQTT broker connection settings.
type BrokerConfig struct {
	// ClientID identifies this client to the broker. If empty, a random
	// suffix is generated at startup.
	ClientID string `yaml:"client_id"`

	// Host is the broker hostname or IP address.
	Host string `yaml:"host"`

	// Port is the plaintext broker port. Used when TLS is disabled.
	Port int `yaml:"port"`

	// SecurePort is the TLS broker port. Used when TLS is enabled.
	SecurePort int `yaml:"secure_port"`

	// TLS enables a TLS session to SecurePort with server certificate
	// validation (chain plus pinned fingerprint).
	TLS bool `yaml:"tls"`

	// ClientCertificate enables mutual TLS: the client certificate and key
	// from the certificates section are presented during the handshake.
	// Requires TLS to be enabled.
	ClientCertificate bool `yaml:"client_certificate"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// ProtocolVersion selects the MQTT protocol level (3 = 3.1, 4 = 3.1.1).
	ProtocolVersion int `yaml:"protocol_version"`

	// KeepAliveSeconds is the interval between keep-alive pings.
	KeepAliveSeconds int `yaml:"keep_alive_seconds"`

	// ReconnectDelaySeconds is the fixed delay between reconnect attempts.
	ReconnectDelaySeconds int `yaml:"reconnect_delay_seconds"`

	// QoS is the default quality-of-service level for publishes and
	// subscriptions (0, 1, or 2).
	QoS int `yaml:"qos"`
}

// CertificatesConfig contains TLS certificate material locations.
type CertificatesConfig struct {
	// ServerFingerprint is the expected SHA-256 fingerprint of the broker's
	// leaf certificate, hex encoded. Separators (colons, spaces) and case
	// are ignored during comparison.
	ServerFingerprint string `yaml:"server_fingerprint"`

	// CAFile is the PEM file containing the trusted root certificate.
	// If empty, the platform trust store is used for chain building.
	CAFile string `yaml:"ca_file"`

	// ClientCertificateFile and ClientKeyFile are the PEM files presented
	// for mutual TLS when broker.client_certificate is enabled.
	ClientCertificateFile string `yaml:"client_certificate_file"`
	ClientKeyFile         string `yaml:"client_key_file"`

	// ClientKeyPassword decrypts the client key when the PEM block is
	// passphrase protected. Leave empty for unencrypted keys.
	ClientKeyPassword string `yaml:"client_key_password"`
}

// OutputMapping binds a subscription topic pattern to a named output.
// Consumed by the outputs package, not by the managed client itself.
type OutputMapping struct {
	// Topic is the subscription pattern, e.g. "inputs/button1/isPressed".
	// MQTT wildcards (+, #) are permitted.
	Topic string `yaml:"topic"`

	// Output is the driver-specific output name, e.g. "relay-1".
	Output string `yaml:"output"`

	// Invert flips the parsed boolean payload before driving the output.
	Invert bool `yaml:"invert"`
}

// JournalConfig contains settings for the SQLite event journal.
type JournalConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// TelemetryConfig contains InfluxDB connection settings for the optional
// metrics sink.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable
// overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: IOBRIDGE_SECTION_KEY
// For example: IOBRIDGE_BROKER_HOST, IOBRIDGE_BROKER_PASSWORD
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Broker: BrokerConfig{
			Host:                  "localhost",
			Port:                  1883,
			SecurePort:            8883,
			ProtocolVersion:       4,
			KeepAliveSeconds:      60,
			ReconnectDelaySeconds: 5,
			QoS:                   1,
		},
		Journal: JournalConfig{
			Path:        "./data/iobridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Telemetry: TelemetryConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides for values that
// commonly differ between deployments, or that should never live in a file
// (credentials).
func applyEnvOverrides(cfg *Config) {
	// Broker
	if v := os.Getenv("IOBRIDGE_BROKER_HOST"); v != "" {
		cfg.Broker.Host = v
	}
	if v := os.Getenv("IOBRIDGE_BROKER_USERNAME"); v != "" {
		cfg.Broker.Username = v
	}
	if v := os.Getenv("IOBRIDGE_BROKER_PASSWORD"); v != "" {
		cfg.Broker.Password = v
	}

	// Certificates
	if v := os.Getenv("IOBRIDGE_CLIENT_KEY_PASSWORD"); v != "" {
		cfg.Certificates.ClientKeyPassword = v
	}

	// Journal
	if v := os.Getenv("IOBRIDGE_JOURNAL_PATH"); v != "" {
		cfg.Journal.Path = v
	}

	// Telemetry
	if v := os.Getenv("IOBRIDGE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Broker validation
	if c.Broker.Host == "" {
		errs = append(errs, "broker.host is required")
	}
	if c.Broker.TLS {
		if c.Broker.SecurePort < 1 || c.Broker.SecurePort > 65535 {
			errs = append(errs, "broker.secure_port must be between 1 and 65535")
		}
	} else {
		if c.Broker.Port < 1 || c.Broker.Port > 65535 {
			errs = append(errs, "broker.port must be between 1 and 65535")
		}
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		errs = append(errs, "broker.qos must be 0, 1, or 2")
	}
	if c.Broker.KeepAliveSeconds < 1 {
		errs = append(errs, "broker.keep_alive_seconds must be positive")
	}
	if c.Broker.ReconnectDelaySeconds < 1 {
		errs = append(errs, "broker.reconnect_delay_seconds must be positive")
	}
	if v := c.Broker.ProtocolVersion; v != 3 && v != 4 {
		errs = append(errs, "broker.protocol_version must be 3 (MQTT 3.1) or 4 (MQTT 3.1.1)")
	}
	if c.Broker.ClientCertificate && !c.Broker.TLS {
		errs = append(errs, "broker.client_certificate requires broker.tls")
	}

	// Certificates validation. Mutual TLS without certificate material must
	// fail here rather than silently degrading to a one-way handshake.
	if c.Broker.ClientCertificate {
		if c.Certificates.ClientCertificateFile == "" {
			errs = append(errs, "certificates.client_certificate_file is required when broker.client_certificate is enabled")
		}
		if c.Certificates.ClientKeyFile == "" {
			errs = append(errs, "certificates.client_key_file is required when broker.client_certificate is enabled")
		}
	}
	if c.Broker.TLS && c.Certificates.ServerFingerprint == "" {
		errs = append(errs, "certificates.server_fingerprint is required when broker.tls is enabled")
	}

	// Outputs validation
	for i, m := range c.Outputs {
		if m.Topic == "" {
			errs = append(errs, fmt.Sprintf("outputs[%d].topic is required", i))
		}
		if m.Output == "" {
			errs = append(errs, fmt.Sprintf("outputs[%d].output is required", i))
		}
	}

	// Journal validation
	if c.Journal.Enabled && c.Journal.Path == "" {
		errs = append(errs, "journal.path is required when journal is enabled")
	}

	// Telemetry validation
	if c.Telemetry.Enabled {
		if c.Telemetry.URL == "" {
			errs = append(errs, "telemetry.url is required when telemetry is enabled")
		}
		if c.Telemetry.Org == "" {
			errs = append(errs, "telemetry.org is required when telemetry is enabled")
		}
		if c.Telemetry.Bucket == "" {
			errs = append(errs, "telemetry.bucket is required when telemetry is enabled")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// KeepAlive returns the keep-alive interval as a Duration.
func (b BrokerConfig) KeepAlive() time.Duration {
	return time.Duration(b.KeepAliveSeconds) * time.Second
}

// ReconnectDelay returns the fixed reconnect delay as a Duration.
func (b BrokerConfig) ReconnectDelay() time.Duration {
	return time.Duration(b.ReconnectDelaySeconds) * time.Second
}
