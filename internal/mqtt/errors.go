package mqtt

import "errors"

// Domain-specific errors for the managed client.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when attempting operations before the
	// client has started or after it has stopped.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed connect attempt. The reconnect
	// loop retries these indefinitely; it is surfaced only through the
	// observer.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrAlreadyStarted is returned when Start is called twice.
	ErrAlreadyStarted = errors.New("mqtt: client already started")

	// ErrInvalidQoS is returned when a QoS level outside 0..2 is specified.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned when publishing to an empty topic or one
	// containing wildcard characters.
	ErrInvalidTopic = errors.New("mqtt: invalid topic name")

	// ErrInvalidPattern is returned when subscribing with an empty pattern
	// or one that misuses wildcards (# anywhere but the final segment, or a
	// wildcard mixed into a literal segment).
	ErrInvalidPattern = errors.New("mqtt: invalid subscription pattern")

	// ErrNilHandler is returned when subscribing without a handler.
	ErrNilHandler = errors.New("mqtt: handler cannot be nil")

	// ErrSubscribeFailed is returned when a broker subscribe request fails.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrUnsubscribeFailed is returned when a broker unsubscribe request fails.
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")
)
