package mqtt

import (
	"fmt"
	"sync"
)

// registration is one pattern-to-handler binding.
type registration struct {
	pattern string
	label   string
	qos     QoS
	handler Handler
}

// Registry maps subscription patterns to handlers and fans every inbound
// message out to all matching handlers in registration order.
//
// Patterns are keyed uniquely: registering a pattern again replaces the
// prior binding. Registrations are never removed implicitly.
//
// Thread Safety:
//   - Add and Dispatch may be called concurrently; mutation and iteration
//     are serialized by an RWMutex. Dispatch iterates a snapshot, so a
//     handler may itself call Add without deadlocking.
type Registry struct {
	mu       sync.RWMutex
	subs     []registration
	observer Observer
}

// NewRegistry creates an empty registry reporting through observer.
func NewRegistry(observer Observer) *Registry {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Registry{observer: observer}
}

// Add registers a handler for a pattern at the given QoS.
//
// If the pattern is already registered the prior binding is removed and the
// new one appended, so the replacement takes the youngest position in
// dispatch order. The caller is responsible for the matching broker
// unsubscribe/resubscribe when a session is active.
//
// Returns:
//   - replaced: Whether an existing binding for pattern was removed
//   - error: ErrInvalidPattern or ErrNilHandler on bad arguments
func (r *Registry) Add(label, pattern string, qos QoS, handler Handler) (replaced bool, err error) {
	if !ValidPattern(pattern) {
		return false, fmt.Errorf("%w: %q", ErrInvalidPattern, pattern)
	}
	if handler == nil {
		return false, ErrNilHandler
	}
	if qos > ExactlyOnce {
		return false, ErrInvalidQoS
	}
	if label == "" {
		label = pattern
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, sub := range r.subs {
		if sub.pattern == pattern {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			replaced = true
			break
		}
	}
	r.subs = append(r.subs, registration{
		pattern: pattern,
		label:   label,
		qos:     qos,
		handler: handler,
	})

	return replaced, nil
}

// Dispatch routes a message to every registered handler whose pattern
// matches the message topic, in registration order.
//
// Each handler invocation is isolated: an error return or panic is reported
// to the observer and never prevents the remaining matches from running.
func (r *Registry) Dispatch(msg Message) {
	for _, sub := range r.snapshot() {
		if !MatchTopic(msg.Topic, sub.pattern) {
			continue
		}
		r.observer.MessageReceived(msg.Topic, sub.label)
		r.invoke(sub, msg)
	}
}

// invoke runs one handler with panic recovery.
func (r *Registry) invoke(sub registration, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.observer.HandlerFailed(sub.label, msg.Topic, fmt.Errorf("handler panic: %v", rec))
		}
	}()

	if err := sub.handler(msg); err != nil {
		r.observer.HandlerFailed(sub.label, msg.Topic, err)
	}
}

// snapshot copies the registration list under the read lock so dispatch
// never iterates the registry mid-mutation.
func (r *Registry) snapshot() []registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]registration, len(r.subs))
	copy(subs, r.subs)
	return subs
}

// Len returns the number of registered patterns.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}
