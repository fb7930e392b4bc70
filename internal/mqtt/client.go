package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/edgepilot/iobridge/internal/certs"
	"github.com/edgepilot/iobridge/internal/infrastructure/config"
)

// Client is the managed pub/sub client.
//
// It composes the subscription registry and the connection manager: the
// application registers pattern handlers (before or after Start), publishes
// messages, and receives everything else — connection churn, publish
// completions, dispatch activity — through the Observer.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	brokerCfg config.BrokerConfig
	certCfg   config.CertificatesConfig
	registry  *Registry
	observer  Observer
	logger    Logger

	// transport overrides the paho client factory; used by tests.
	transport func(*pahomqtt.ClientOptions) pahomqtt.Client

	mu   sync.Mutex
	conn *connManager
}

// New creates a managed client for the given broker and certificate
// configuration. A nil observer discards all notifications.
//
// The configuration is treated as an immutable snapshot; nothing re-reads
// it after construction.
func New(brokerCfg config.BrokerConfig, certCfg config.CertificatesConfig, observer Observer) *Client {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Client{
		brokerCfg: brokerCfg,
		certCfg:   certCfg,
		registry:  NewRegistry(observer),
		observer:  observer,
		logger:    nopLogger{},
	}
}

// SetLogger sets a logger for internal diagnostics (re-subscribe failures,
// certificate rejection detail). Must be called before Start.
func (c *Client) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Subscribe registers a handler for messages matching pattern, using the
// pattern itself as the handler's diagnostic label.
//
// Patterns can include MQTT wildcards:
//   - + (single segment): "inputs/+/isPressed" matches any input
//   - # (multi segment, final position): "inputs/#" matches the whole subtree
//
// Subscribing before Start guarantees the pattern is subscribed with the
// broker during the initial connect sequence, so retained messages are not
// missed. Registering an already-registered pattern replaces its handler and
// triggers a broker unsubscribe/resubscribe when a session is live.
//
// Returns:
//   - error: ErrInvalidPattern, ErrNilHandler, or ErrInvalidQoS; nil otherwise
func (c *Client) Subscribe(pattern string, qos QoS, handler Handler) error {
	return c.SubscribeNamed(pattern, pattern, qos, handler)
}

// SubscribeNamed is Subscribe with an explicit diagnostic label, reported to
// the observer whenever the handler is dispatched to or fails.
func (c *Client) SubscribeNamed(label, pattern string, qos QoS, handler Handler) error {
	replaced, err := c.registry.Add(label, pattern, qos, handler)
	if err != nil {
		return err
	}

	// Sync the live session, if any. Failures are not fatal: registrations
	// are replayed wholesale on the next (re)connect.
	if conn := c.connection(); conn != nil && conn.State() == Connected {
		if replaced {
			if err := conn.unsubscribe(pattern); err != nil {
				c.logger.Warn("unsubscribe during replace failed", "pattern", pattern, "error", err)
			}
		}
		if err := conn.subscribe(pattern, qos); err != nil {
			c.logger.Warn("subscribe failed", "pattern", pattern, "error", err)
		}
	}

	return nil
}

// Start resolves the certificate bundle, builds the session configuration,
// and launches the connection manager.
//
// It returns once the first connect attempt has been issued — not
// necessarily once connected; connection progress is reported through the
// observer and retried indefinitely on failure. Malformed certificate
// configuration is the one fatal case, returned synchronously.
func (c *Client) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return ErrAlreadyStarted
	}

	var tlsConfig *tls.Config
	if c.brokerCfg.TLS {
		bundle, err := certs.LoadBundle(c.certCfg, c.brokerCfg.ClientCertificate)
		if err != nil {
			return fmt.Errorf("loading certificate bundle: %w", err)
		}
		validator := certs.NewValidator(bundle.Roots, c.certCfg.ServerFingerprint, c.logger)
		validator.SetOnReject(c.observer.CertificateRejected)
		tlsConfig = buildTLSConfig(bundle, validator)
	}

	opts := buildClientOptions(c.brokerCfg, tlsConfig)
	c.conn = newConnManager(opts, c.brokerCfg.ReconnectDelay(), c.registry, c.observer, c.logger, c.transport)
	c.conn.start()

	return nil
}

// Publish hands a message to the session for delivery at its requested QoS.
//
// Publish is non-blocking: it returns once the message is queued with the
// transport, and broker acceptance is reported asynchronously via
// Observer.PublishCompleted. The client does not buffer across disconnects.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, or ErrNotConnected; nil otherwise
func (c *Client) Publish(msg Message) error {
	if !ValidTopic(msg.Topic) {
		return fmt.Errorf("%w: %q", ErrInvalidTopic, msg.Topic)
	}
	if msg.QoS > ExactlyOnce {
		return ErrInvalidQoS
	}

	conn := c.connection()
	if conn == nil {
		return ErrNotConnected
	}
	return conn.publish(msg)
}

// Stop gracefully closes the session and halts the reconnect loop promptly.
// Idempotent; safe to call before Start.
func (c *Client) Stop() {
	if conn := c.connection(); conn != nil {
		conn.stop()
	}
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	conn := c.connection()
	if conn == nil {
		return Disconnected
	}
	return conn.State()
}

// SubscriptionCount returns the number of registered patterns.
func (c *Client) SubscriptionCount() int {
	return c.registry.Len()
}

// HealthCheck verifies the session is connected.
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if c.State() != Connected {
		return ErrNotConnected
	}
	return nil
}

func (c *Client) connection() *connManager {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}
