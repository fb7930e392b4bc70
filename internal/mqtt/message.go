package mqtt

// QoS is the MQTT quality-of-service level for a publish or subscription.
type QoS byte

// QoS levels.
const (
	// AtMostOnce delivers fire-and-forget (QoS 0).
	AtMostOnce QoS = iota

	// AtLeastOnce guarantees delivery but may duplicate (QoS 1).
	AtLeastOnce

	// ExactlyOnce guarantees single delivery at higher overhead (QoS 2).
	ExactlyOnce
)

// String returns the QoS level as its wire value.
func (q QoS) String() string {
	switch q {
	case AtMostOnce:
		return "at-most-once"
	case AtLeastOnce:
		return "at-least-once"
	case ExactlyOnce:
		return "exactly-once"
	default:
		return "invalid"
	}
}

// Message is a single pub/sub message, inbound or outbound.
//
// Messages are immutable once constructed: the dispatch path hands the same
// value to every matching handler, and handlers must not mutate Payload.
type Message struct {
	// Topic is the concrete, wildcard-free topic name.
	Topic string

	// Payload is the raw message body.
	Payload []byte

	// ContentType describes the payload for outbound messages. The 3.1.1
	// wire protocol does not carry it, so it is empty on inbound messages.
	ContentType string

	// Retained marks the message for broker retention, or, on inbound
	// messages, indicates it was delivered from the broker's retain store.
	Retained bool

	// QoS is the delivery guarantee requested or negotiated.
	QoS QoS
}

// Handler processes a single inbound message.
//
// Handlers run on the session driver's dispatch path and must not block for
// extended periods: a stalled handler delays delivery of subsequent messages
// and keep-alive processing. A returned error (or panic) is isolated and
// reported to the observer; it never affects other handlers or the session.
type Handler func(msg Message) error
