package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// ConnectionState describes the session lifecycle.
//
// Transitions are driven only by connect attempts, transport failures, and
// explicit stop:
//
//	Disconnected → Connecting → Connected → Reconnecting → … → Disconnected
type ConnectionState int

// Connection states.
const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Reconnecting
)

// String returns a human-readable state name.
func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// nopLogger discards diagnostics when no logger is configured.
type nopLogger struct{}

func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// connManager owns the broker session: connect, keep-alive (delegated to the
// transport), inbound delivery, and automatic reconnection with a fixed
// delay. It is the only writer of the connection state.
//
// Connect failures — including certificate validation failures, which
// surface as handshake errors — are never fatal: the manager retries
// indefinitely until stopped.
type connManager struct {
	opts     *pahomqtt.ClientOptions
	delay    time.Duration
	registry *Registry
	observer Observer
	logger   Logger

	// newClient builds the transport session; replaceable for tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client

	mu      sync.Mutex
	client  pahomqtt.Client
	state   ConnectionState
	stopped bool

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// newConnManager wires a manager to its transport options. A nil factory
// uses the real paho client; a nil logger discards diagnostics.
func newConnManager(opts *pahomqtt.ClientOptions, delay time.Duration, registry *Registry, observer Observer, logger Logger, factory func(*pahomqtt.ClientOptions) pahomqtt.Client) *connManager {
	if factory == nil {
		factory = pahomqtt.NewClient
	}
	if logger == nil {
		logger = nopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &connManager{
		opts:      opts,
		delay:     delay,
		registry:  registry,
		observer:  observer,
		logger:    logger,
		newClient: factory,
		ctx:       ctx,
		cancel:    cancel,
	}

	// All inbound traffic funnels through one handler so that dispatch sees
	// each message exactly once regardless of how many patterns it matches.
	opts.SetDefaultPublishHandler(m.route)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		m.handleLost(err)
	})

	return m
}

// start creates the transport session and launches the connect loop.
// It returns as soon as the first attempt has been issued.
func (m *connManager) start() {
	m.mu.Lock()
	m.client = m.newClient(m.opts)
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.connectLoop()
	}()
}

// connectLoop attempts to connect until success or stop, waiting the fixed
// delay between attempts. On success it restores every registered
// subscription before returning, so retained messages published before the
// process existed are delivered to pre-registered handlers.
func (m *connManager) connectLoop() {
	operation := func() error {
		m.setState(Connecting)
		return m.connectOnce()
	}
	notify := func(err error, next time.Duration) {
		m.setState(Reconnecting)
		m.observer.ConnectFailed(err, next)
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(m.delay), m.ctx)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		// Stop was requested; the context aborted the retry wait.
		m.setState(Disconnected)
		return
	}

	m.setState(Connected)
	m.subscribeAll()
}

// connectOnce performs a single connect attempt. It gives up on stop rather
// than waiting out a slow handshake, so stop never blocks behind an
// in-flight attempt.
func (m *connManager) connectOnce() error {
	token := m.currentClient().Connect()

	select {
	case <-token.Done():
	case <-m.ctx.Done():
		return fmt.Errorf("%w: %w", ErrConnectionFailed, m.ctx.Err())
	case <-time.After(defaultConnectTimeout):
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// handleLost reacts to a transport failure or broker-initiated disconnect.
//
// The stopped check and the WaitGroup Add happen under the same lock stop
// takes before waiting, so a lost-connection callback racing stop can never
// Add after the Wait has begun.
func (m *connManager) handleLost(err error) {
	m.observer.ConnectionLost(err)

	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		m.setState(Disconnected)
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	m.setState(Reconnecting)
	go func() {
		defer m.wg.Done()
		m.connectLoop()
	}()
}

// subscribeAll issues a broker subscribe for every registered pattern.
// Individual failures are logged, not fatal: the registration survives and
// is retried on the next reconnect.
func (m *connManager) subscribeAll() {
	for _, sub := range m.registry.snapshot() {
		if err := m.subscribe(sub.pattern, sub.qos); err != nil {
			m.logger.Warn("subscribe failed during connect",
				"pattern", sub.pattern,
				"error", err,
			)
		}
	}
}

// subscribe requests broker delivery for a pattern. The nil callback routes
// matched messages to the default publish handler.
func (m *connManager) subscribe(pattern string, qos QoS) error {
	client := m.currentClient()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	token := client.Subscribe(pattern, byte(qos), nil)
	if !token.WaitTimeout(defaultTokenTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultTokenTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	return nil
}

// unsubscribe withdraws a pattern from the broker.
func (m *connManager) unsubscribe(pattern string) error {
	client := m.currentClient()
	if client == nil || !client.IsConnected() {
		return ErrNotConnected
	}

	token := client.Unsubscribe(pattern)
	if !token.WaitTimeout(defaultTokenTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultTokenTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}
	return nil
}

// publish hands a message to the transport and returns immediately.
// Broker acceptance (or failure) is reported asynchronously through the
// observer. The manager does not buffer: while disconnected the transport
// decides whether to queue or fail.
func (m *connManager) publish(msg Message) error {
	client := m.currentClient()
	if client == nil {
		return ErrNotConnected
	}

	token := client.Publish(msg.Topic, byte(msg.QoS), msg.Retained, msg.Payload)
	go func() {
		<-token.Done()
		m.observer.PublishCompleted(msg.Topic, token.Error())
	}()
	return nil
}

// route converts an inbound transport message and forwards it to dispatch.
func (m *connManager) route(_ pahomqtt.Client, pm pahomqtt.Message) {
	m.registry.Dispatch(Message{
		Topic:    pm.Topic(),
		Payload:  pm.Payload(),
		Retained: pm.Retained(),
		QoS:      QoS(pm.Qos()),
	})
}

// stop closes the session and halts the reconnect loop promptly, without
// sleeping through a pending retry delay. Idempotent.
func (m *connManager) stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		m.mu.Unlock()

		m.cancel()

		if client := m.currentClient(); client != nil && client.IsConnected() {
			client.Disconnect(defaultDisconnectQuiesce)
		}

		m.wg.Wait()
		m.setState(Disconnected)
	})
}

// setState records a transition and reports it when it changes anything.
func (m *connManager) setState(next ConnectionState) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev != next {
		m.observer.StateChanged(prev, next)
	}
}

// State returns the current connection state.
func (m *connManager) State() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *connManager) currentClient() pahomqtt.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client
}
