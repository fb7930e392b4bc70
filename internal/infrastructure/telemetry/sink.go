package telemetry

import (
	"strings"
	"time"

	"github.com/edgepilot/iobridge/internal/mqtt"
)

// Measurements written by the sink.
const (
	measurementSession   = "session_events"
	measurementPublishes = "publishes"
	measurementMessages  = "messages"
	measurementFailures  = "handler_failures"
)

// pointWriter is the subset of Client the sink needs; swapped for a fake
// in tests.
type pointWriter interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// Sink converts client session activity into InfluxDB points.
//
// It implements mqtt.Observer. All writes go through the non-blocking
// batched write API, so observer callbacks never stall the session driver.
type Sink struct {
	writer   pointWriter
	clientID string
}

// NewSink creates an observer writing points through client, tagging every
// point with the agent's client ID so multiple agents can share a bucket.
func NewSink(client *Client, clientID string) *Sink {
	return &Sink{writer: client, clientID: clientID}
}

func (s *Sink) sessionEvent(event string, tags map[string]string) {
	if tags == nil {
		tags = make(map[string]string)
	}
	tags["client"] = s.clientID
	tags["event"] = event

	s.writer.WritePoint(measurementSession, tags, map[string]interface{}{"value": 1})
}

// StateChanged implements mqtt.Observer.
func (s *Sink) StateChanged(_, next mqtt.ConnectionState) {
	s.sessionEvent("state_change", map[string]string{"state": next.String()})
}

// ConnectFailed implements mqtt.Observer.
func (s *Sink) ConnectFailed(_ error, _ time.Duration) {
	s.sessionEvent("connect_failure", nil)
}

// ConnectionLost implements mqtt.Observer.
func (s *Sink) ConnectionLost(_ error) {
	s.sessionEvent("connection_lost", nil)
}

// CertificateRejected implements mqtt.Observer.
func (s *Sink) CertificateRejected(subject string, reasons []string) {
	s.writer.WritePoint(measurementSession,
		map[string]string{"client": s.clientID, "event": "certificate_rejected"},
		map[string]interface{}{"value": 1, "subject": subject, "reasons": strings.Join(reasons, "; ")},
	)
}

// PublishCompleted implements mqtt.Observer.
func (s *Sink) PublishCompleted(topic string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	s.writer.WritePoint(measurementPublishes,
		map[string]string{"client": s.clientID, "status": status},
		map[string]interface{}{"value": 1, "topic": topic},
	)
}

// MessageReceived implements mqtt.Observer.
func (s *Sink) MessageReceived(topic, label string) {
	s.writer.WritePoint(measurementMessages,
		map[string]string{"client": s.clientID, "handler": label},
		map[string]interface{}{"value": 1, "topic": topic},
	)
}

// HandlerFailed implements mqtt.Observer.
func (s *Sink) HandlerFailed(label, topic string, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}

	s.writer.WritePoint(measurementFailures,
		map[string]string{"client": s.clientID, "handler": label},
		map[string]interface{}{"value": 1, "topic": topic, "error": detail},
	)
}
