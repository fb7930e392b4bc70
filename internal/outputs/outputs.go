package outputs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edgepilot/iobridge/internal/infrastructure/config"
	"github.com/edgepilot/iobridge/internal/mqtt"
)

// Driver applies boolean states to named outputs.
//
// Implementations are hardware-specific (GPIO, relay boards, virtual). Set
// is called from message dispatch and must tolerate concurrent calls for
// different outputs.
type Driver interface {
	Set(ctx context.Context, name string, on bool) error
}

// Subscriber is the slice of the managed client Bind needs.
type Subscriber interface {
	SubscribeNamed(label, pattern string, qos mqtt.QoS, handler mqtt.Handler) error
}

// Bind registers a subscription for every output mapping, wiring inbound
// boolean payloads to the driver.
//
// Each mapping's handler parses the payload ("on"/"off", "true"/"false",
// "1"/"0"), applies the optional inversion, and drives the named output.
// Parse and driver failures are returned from the handler and surface
// through the client's observer; they never affect other mappings.
//
// Returns:
//   - error: If a mapping is incomplete or its pattern is rejected
func Bind(sub Subscriber, mappings []config.OutputMapping, driver Driver, qos mqtt.QoS) error {
	for _, m := range mappings {
		if m.Topic == "" || m.Output == "" {
			return fmt.Errorf("output mapping requires both topic and output: %+v", m)
		}

		mapping := m
		handler := func(msg mqtt.Message) error {
			on, err := parseBool(msg.Payload)
			if err != nil {
				return fmt.Errorf("output %q: %w", mapping.Output, err)
			}
			if mapping.Invert {
				on = !on
			}
			if err := driver.Set(context.Background(), mapping.Output, on); err != nil {
				return fmt.Errorf("output %q: %w", mapping.Output, err)
			}
			return nil
		}

		if err := sub.SubscribeNamed("output:"+mapping.Output, mapping.Topic, qos, handler); err != nil {
			return fmt.Errorf("binding output %q to %q: %w", mapping.Output, mapping.Topic, err)
		}
	}

	return nil
}

// parseBool interprets the boolean payload conventions seen on input topics.
func parseBool(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "1", "true", "on":
		return true, nil
	case "0", "false", "off":
		return false, nil
	default:
		return false, fmt.Errorf("unparseable boolean payload %q", payload)
	}
}

// MemoryDriver holds output states in memory. Used for tests and as the
// default driver when no hardware backend is configured.
type MemoryDriver struct {
	mu     sync.RWMutex
	states map[string]bool
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver() *MemoryDriver {
	return &MemoryDriver{states: make(map[string]bool)}
}

// Set implements Driver.
func (d *MemoryDriver) Set(_ context.Context, name string, on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[name] = on
	return nil
}

// Get returns the state of a named output and whether it has ever been set.
func (d *MemoryDriver) Get(name string) (on, known bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	on, known = d.states[name]
	return on, known
}

// States returns a snapshot of all known output states.
func (d *MemoryDriver) States() map[string]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]bool, len(d.states))
	for name, on := range d.states {
		out[name] = on
	}
	return out
}
