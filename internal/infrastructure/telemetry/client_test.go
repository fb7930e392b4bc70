package telemetry_test

import (
	"errors"
	"testing"

	"github.com/edgepilot/iobridge/internal/infrastructure/config"
	"github.com/edgepilot/iobridge/internal/infrastructure/telemetry"
)

func testConfig() config.TelemetryConfig {
	return config.TelemetryConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "iobridge-dev-token",
		Org:           "iobridge",
		Bucket:        "metrics",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

func TestConnectDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	_, err := telemetry.Connect(cfg)
	if !errors.Is(err, telemetry.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnectUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:59999"

	_, err := telemetry.Connect(cfg)
	if err == nil {
		t.Fatal("Connect() error = nil, want connection failure")
	}
	if !errors.Is(err, telemetry.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
