package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
broker:
  client_id: "iobridge-test"
  host: "broker.local"
  port: 1883
  qos: 1
outputs:
  - topic: "inputs/button1/isPressed"
    output: "relay-1"
journal:
  enabled: true
  path: "/tmp/test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Broker.ClientID != "iobridge-test" {
		t.Errorf("Broker.ClientID = %q, want %q", cfg.Broker.ClientID, "iobridge-test")
	}
	if cfg.Broker.Host != "broker.local" {
		t.Errorf("Broker.Host = %q, want %q", cfg.Broker.Host, "broker.local")
	}
	if len(cfg.Outputs) != 1 || cfg.Outputs[0].Output != "relay-1" {
		t.Errorf("Outputs = %+v, want one mapping to relay-1", cfg.Outputs)
	}
	if cfg.Journal.Path != "/tmp/test.db" {
		t.Errorf("Journal.Path = %q, want %q", cfg.Journal.Path, "/tmp/test.db")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `broker: {host: "localhost"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Broker.Port != 1883 {
		t.Errorf("Broker.Port = %d, want default 1883", cfg.Broker.Port)
	}
	if cfg.Broker.SecurePort != 8883 {
		t.Errorf("Broker.SecurePort = %d, want default 8883", cfg.Broker.SecurePort)
	}
	if cfg.Broker.KeepAliveSeconds != 60 {
		t.Errorf("Broker.KeepAliveSeconds = %d, want default 60", cfg.Broker.KeepAliveSeconds)
	}
	if cfg.Broker.ReconnectDelaySeconds != 5 {
		t.Errorf("Broker.ReconnectDelaySeconds = %d, want default 5", cfg.Broker.ReconnectDelaySeconds)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default info", cfg.Logging.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("IOBRIDGE_BROKER_HOST", "env-broker")
	t.Setenv("IOBRIDGE_BROKER_PASSWORD", "env-secret")

	cfg, err := Load(writeConfig(t, `broker: {host: "file-broker"}`))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Broker.Host != "env-broker" {
		t.Errorf("Broker.Host = %q, want env override %q", cfg.Broker.Host, "env-broker")
	}
	if cfg.Broker.Password != "env-secret" {
		t.Errorf("Broker.Password = %q, want env override", cfg.Broker.Password)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Broker.Host = "" },
			wantMsg: "broker.host",
		},
		{
			name:    "invalid qos",
			mutate:  func(c *Config) { c.Broker.QoS = 3 },
			wantMsg: "broker.qos",
		},
		{
			name:    "invalid protocol version",
			mutate:  func(c *Config) { c.Broker.ProtocolVersion = 9 },
			wantMsg: "broker.protocol_version",
		},
		{
			name:    "zero reconnect delay",
			mutate:  func(c *Config) { c.Broker.ReconnectDelaySeconds = 0 },
			wantMsg: "broker.reconnect_delay_seconds",
		},
		{
			name: "client certificate without tls",
			mutate: func(c *Config) {
				c.Broker.ClientCertificate = true
			},
			wantMsg: "broker.client_certificate requires broker.tls",
		},
		{
			name: "mutual tls without cert file",
			mutate: func(c *Config) {
				c.Broker.TLS = true
				c.Broker.ClientCertificate = true
				c.Certificates.ServerFingerprint = "ab"
				c.Certificates.ClientKeyFile = "/etc/iobridge/client.key"
			},
			wantMsg: "certificates.client_certificate_file",
		},
		{
			name: "tls without fingerprint",
			mutate: func(c *Config) {
				c.Broker.TLS = true
			},
			wantMsg: "certificates.server_fingerprint",
		},
		{
			name: "output mapping without topic",
			mutate: func(c *Config) {
				c.Outputs = []OutputMapping{{Output: "relay-1"}}
			},
			wantMsg: "outputs[0].topic",
		},
		{
			name: "telemetry without url",
			mutate: func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.Org = "org"
				c.Telemetry.Bucket = "bucket"
			},
			wantMsg: "telemetry.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want it to mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := defaultConfig()
	cfg.Broker.Host = ""
	cfg.Broker.QoS = 7

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error, got nil")
	}
	for _, want := range []string{"broker.host", "broker.qos"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %q, want it to mention %q", err, want)
		}
	}
}

func TestBrokerConfig_Durations(t *testing.T) {
	b := BrokerConfig{KeepAliveSeconds: 30, ReconnectDelaySeconds: 7}

	if got := b.KeepAlive().Seconds(); got != 30 {
		t.Errorf("KeepAlive() = %vs, want 30s", got)
	}
	if got := b.ReconnectDelay().Seconds(); got != 7 {
		t.Errorf("ReconnectDelay() = %vs, want 7s", got)
	}
}
