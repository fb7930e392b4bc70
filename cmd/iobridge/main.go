// iobridge - managed MQTT edge agent
//
// This is the main entry point for the iobridge agent. iobridge connects to
// a broker (optionally over validated TLS), subscribes to configured input
// topics, and drives named outputs from their payloads. It is designed for
// unattended operation: connection loss is retried indefinitely, failing
// handlers are isolated, and all session activity can be journalled locally
// and shipped to InfluxDB.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edgepilot/iobridge/internal/infrastructure/config"
	"github.com/edgepilot/iobridge/internal/infrastructure/database"
	"github.com/edgepilot/iobridge/internal/infrastructure/logging"
	"github.com/edgepilot/iobridge/internal/infrastructure/telemetry"
	"github.com/edgepilot/iobridge/internal/journal"
	"github.com/edgepilot/iobridge/internal/mqtt"
	"github.com/edgepilot/iobridge/internal/outputs"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting iobridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	observers := []mqtt.Observer{mqtt.NewLogObserver(log)}

	// Open the local event journal (optional)
	var db *database.DB
	if cfg.Journal.Enabled {
		db, err = database.Open(database.Config{
			Path:        cfg.Journal.Path,
			WALMode:     cfg.Journal.WALMode,
			BusyTimeout: cfg.Journal.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening journal database: %w", err)
		}
		defer func() {
			log.Info("closing journal database")
			if closeErr := db.Close(); closeErr != nil {
				log.Error("error closing journal database", "error", closeErr)
			}
		}()

		recorder, recErr := journal.NewRecorder(db, log)
		if recErr != nil {
			return fmt.Errorf("initialising journal: %w", recErr)
		}
		defer recorder.Close()
		observers = append(observers, recorder)
		log.Info("journal enabled", "path", cfg.Journal.Path)
	} else {
		log.Info("journal disabled")
	}

	// Connect to InfluxDB (optional)
	var telemetryClient *telemetry.Client
	if cfg.Telemetry.Enabled {
		telemetryClient, err = telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := telemetryClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		telemetryClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, telemetry.NewSink(telemetryClient, cfg.Broker.ClientID))
		log.Info("telemetry connected",
			"url", cfg.Telemetry.URL,
			"org", cfg.Telemetry.Org,
			"bucket", cfg.Telemetry.Bucket,
		)
	} else {
		log.Info("telemetry disabled")
	}

	// Build the managed client and register the configured output bindings
	// before Start, so the initial connect subscribes them all and retained
	// input states are applied immediately.
	client := mqtt.New(cfg.Broker, cfg.Certificates, mqtt.CombineObservers(observers...))
	client.SetLogger(log)

	driver := outputs.NewMemoryDriver()
	if err := outputs.Bind(client, cfg.Outputs, driver, mqtt.QoS(cfg.Broker.QoS)); err != nil {
		return fmt.Errorf("binding outputs: %w", err)
	}
	log.Info("outputs bound", "mappings", len(cfg.Outputs))

	if err := client.Start(); err != nil {
		return fmt.Errorf("starting mqtt client: %w", err)
	}
	defer func() {
		log.Info("stopping mqtt client")
		client.Stop()
	}()
	log.Info("mqtt client started",
		"broker", fmt.Sprintf("%s:%d", cfg.Broker.Host, brokerPort(cfg.Broker)),
		"tls", cfg.Broker.TLS,
		"client_id", cfg.Broker.ClientID,
	)

	// Verify local infrastructure. The broker session is excluded: Start is
	// asynchronous and connection progress arrives via the observers.
	if err := healthCheck(ctx, db, telemetryClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred cleanup runs in reverse order:
	// 1. MQTT client
	// 2. InfluxDB (if enabled)
	// 3. Journal recorder and database (if enabled)

	log.Info("iobridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses IOBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("IOBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// brokerPort returns the port the session will actually dial.
func brokerPort(cfg config.BrokerConfig) int {
	if cfg.TLS {
		return cfg.SecurePort
	}
	return cfg.Port
}

// healthCheck verifies local infrastructure connections are healthy.
// Either handle may be nil when the corresponding feature is disabled.
func healthCheck(ctx context.Context, db *database.DB, telemetryClient *telemetry.Client) error {
	if db != nil {
		if err := db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("journal database: %w", err)
		}
	}

	if telemetryClient != nil {
		if err := telemetryClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
	}

	return nil
}
