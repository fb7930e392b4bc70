package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// recorder is a thread-safe Observer capturing every notification.
type recorder struct {
	mu             sync.Mutex
	transitions    []string
	connectFails   []error
	lost           []error
	certRejects    []string
	published      map[string]error
	received       []string
	handlerFails   []string
	handlerErrs    []error
	publishedOrder []string
}

func newRecorder() *recorder {
	return &recorder{published: make(map[string]error)}
}

func (r *recorder) StateChanged(prev, next ConnectionState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, prev.String()+"->"+next.String())
}

func (r *recorder) ConnectFailed(err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectFails = append(r.connectFails, err)
}

func (r *recorder) ConnectionLost(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = append(r.lost, err)
}

func (r *recorder) CertificateRejected(subject string, reasons []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reason := range reasons {
		r.certRejects = append(r.certRejects, subject+": "+reason)
	}
}

func (r *recorder) PublishCompleted(topic string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published[topic] = err
	r.publishedOrder = append(r.publishedOrder, topic)
}

func (r *recorder) MessageReceived(topic, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.received = append(r.received, label+":"+topic)
}

func (r *recorder) HandlerFailed(label, _ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlerFails = append(r.handlerFails, label)
	r.handlerErrs = append(r.handlerErrs, err)
}

func (r *recorder) connectFailCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connectFails)
}

func (r *recorder) certRejections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.certRejects))
	copy(out, r.certRejects)
	return out
}

func (r *recorder) lostCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.lost)
}

func (r *recorder) publishResult(topic string) (error, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	err, ok := r.published[topic]
	return err, ok
}

func (r *recorder) receivedLabels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.received))
	copy(out, r.received)
	return out
}

func (r *recorder) failedLabels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.handlerFails))
	copy(out, r.handlerFails)
	return out
}

func (r *recorder) lastTransition() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.transitions) == 0 {
		return ""
	}
	return r.transitions[len(r.transitions)-1]
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func TestCombineObserversFansOut(t *testing.T) {
	first := newRecorder()
	second := newRecorder()

	combined := CombineObservers(first, nil, second)
	combined.StateChanged(Disconnected, Connecting)
	combined.ConnectionLost(errors.New("gone"))
	combined.CertificateRejected("CN=broker", []string{"unknown authority"})
	combined.MessageReceived("inputs/a", "a-handler")

	for i, rec := range []*recorder{first, second} {
		if got := rec.lastTransition(); got != "disconnected->connecting" {
			t.Errorf("observer %d transition = %q, want %q", i, got, "disconnected->connecting")
		}
		if rec.lostCount() != 1 {
			t.Errorf("observer %d lost count = %d, want 1", i, rec.lostCount())
		}
		if rejects := rec.certRejections(); len(rejects) != 1 || rejects[0] != "CN=broker: unknown authority" {
			t.Errorf("observer %d certificate rejections = %v", i, rejects)
		}
		if labels := rec.receivedLabels(); len(labels) != 1 || labels[0] != "a-handler:inputs/a" {
			t.Errorf("observer %d received = %v", i, labels)
		}
	}
}

func TestNopObserverSatisfiesInterface(t *testing.T) {
	var o Observer = NopObserver{}
	o.StateChanged(Disconnected, Connected)
	o.ConnectFailed(errors.New("x"), time.Second)
	o.ConnectionLost(nil)
	o.CertificateRejected("CN=broker", nil)
	o.PublishCompleted("t", nil)
	o.MessageReceived("t", "l")
	o.HandlerFailed("l", "t", nil)
}
