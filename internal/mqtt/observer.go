package mqtt

import (
	"time"
)

// Logger is the minimal logging interface used for internal diagnostics.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Observer receives structured notifications about session and dispatch
// activity.
//
// Observer calls are made from the session driver's goroutines:
// implementations must be safe for concurrent use and must not block.
// Everything reported here is diagnostic — the client handles connection
// failures (retry) and handler failures (isolation) internally, and only
// configuration and argument errors are surfaced synchronously to callers.
type Observer interface {
	// StateChanged reports a connection state transition.
	StateChanged(prev, next ConnectionState)

	// ConnectFailed reports a failed connect attempt and the fixed delay
	// until the next one. Certificate validation failures arrive here
	// wrapped in the connection error.
	ConnectFailed(err error, retryIn time.Duration)

	// ConnectionLost reports a transport failure or broker-initiated
	// disconnect while connected.
	ConnectionLost(err error)

	// CertificateRejected reports a broker certificate that failed
	// validation during the handshake: the subject name and every chain
	// failure reason or fingerprint mismatch detail. The connect attempt
	// itself is additionally reported through ConnectFailed.
	CertificateRejected(subject string, reasons []string)

	// PublishCompleted reports broker acceptance (or failure) of an
	// asynchronous publish.
	PublishCompleted(topic string, err error)

	// MessageReceived reports an inbound message dispatched to a matching
	// handler, identified by its registration label.
	MessageReceived(topic, label string)

	// HandlerFailed reports an isolated handler error or panic during
	// dispatch.
	HandlerFailed(label, topic string, err error)
}

// NopObserver discards all notifications. Useful as an embedding base when
// only a subset of events is of interest.
type NopObserver struct{}

func (NopObserver) StateChanged(ConnectionState, ConnectionState) {}
func (NopObserver) ConnectFailed(error, time.Duration)            {}
func (NopObserver) ConnectionLost(error)                          {}
func (NopObserver) CertificateRejected(string, []string)          {}
func (NopObserver) PublishCompleted(string, error)                {}
func (NopObserver) MessageReceived(string, string)                {}
func (NopObserver) HandlerFailed(string, string, error)           {}

// CombineObservers fans every notification out to each observer in order.
// Nil entries are skipped.
func CombineObservers(observers ...Observer) Observer {
	combined := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			combined = append(combined, o)
		}
	}
	return combined
}

type multiObserver []Observer

func (m multiObserver) StateChanged(prev, next ConnectionState) {
	for _, o := range m {
		o.StateChanged(prev, next)
	}
}

func (m multiObserver) ConnectFailed(err error, retryIn time.Duration) {
	for _, o := range m {
		o.ConnectFailed(err, retryIn)
	}
}

func (m multiObserver) ConnectionLost(err error) {
	for _, o := range m {
		o.ConnectionLost(err)
	}
}

func (m multiObserver) CertificateRejected(subject string, reasons []string) {
	for _, o := range m {
		o.CertificateRejected(subject, reasons)
	}
}

func (m multiObserver) PublishCompleted(topic string, err error) {
	for _, o := range m {
		o.PublishCompleted(topic, err)
	}
}

func (m multiObserver) MessageReceived(topic, label string) {
	for _, o := range m {
		o.MessageReceived(topic, label)
	}
}

func (m multiObserver) HandlerFailed(label, topic string, err error) {
	for _, o := range m {
		o.HandlerFailed(label, topic, err)
	}
}

// LogObserver reports every notification through a structured logger.
type LogObserver struct {
	logger Logger
}

// NewLogObserver creates an Observer that logs all session activity.
func NewLogObserver(logger Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) StateChanged(prev, next ConnectionState) {
	o.logger.Info("connection state changed", "from", prev.String(), "to", next.String())
}

func (o *LogObserver) ConnectFailed(err error, retryIn time.Duration) {
	o.logger.Warn("connect attempt failed", "error", err, "retry_in", retryIn.String())
}

func (o *LogObserver) ConnectionLost(err error) {
	o.logger.Warn("connection lost", "error", err)
}

func (o *LogObserver) CertificateRejected(subject string, reasons []string) {
	for _, reason := range reasons {
		o.logger.Error("broker certificate rejected", "subject", subject, "reason", reason)
	}
}

func (o *LogObserver) PublishCompleted(topic string, err error) {
	if err != nil {
		o.logger.Warn("publish failed", "topic", topic, "error", err)
		return
	}
	o.logger.Info("publish completed", "topic", topic)
}

func (o *LogObserver) MessageReceived(topic, label string) {
	o.logger.Info("message received", "topic", topic, "handler", label)
}

func (o *LogObserver) HandlerFailed(label, topic string, err error) {
	o.logger.Error("handler failed", "handler", label, "topic", topic, "error", err)
}
