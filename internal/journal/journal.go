package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/edgepilot/iobridge/internal/infrastructure/database"
	"github.com/edgepilot/iobridge/internal/mqtt"
)

// Event kinds recorded by the journal.
const (
	KindStateChange    = "state_change"
	KindConnectFailure = "connect_failure"
	KindConnectionLost = "connection_lost"
	KindCertRejected   = "certificate_rejected"
	KindPublish        = "publish"
	KindMessage        = "message"
	KindHandlerFailure = "handler_failure"
)

// Event is a single journal entry.
type Event struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Topic     string    `json:"topic,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which events List returns.
type Filter struct {
	Kind   string // optional: filter by event kind
	Topic  string // optional: filter by exact topic
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains paginated journal results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// queueDepth bounds the write buffer between observer callbacks and the
// writer goroutine.
const queueDepth = 256

// Recorder persists client activity to the SQLite journal.
//
// It implements mqtt.Observer. Observer callbacks must not block, so events
// are queued to a single writer goroutine; when the queue is full the event
// is dropped and counted rather than stalling the session driver.
type Recorder struct {
	db     *database.DB
	logger mqtt.Logger

	events  chan Event
	dropped atomic.Uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRecorder bootstraps the journal schema and starts the writer.
// The caller owns the database handle; Close stops the writer but does not
// close the database.
func NewRecorder(db *database.DB, logger mqtt.Logger) (*Recorder, error) {
	if err := ensureSchema(db.DB); err != nil {
		return nil, err
	}

	r := &Recorder{
		db:     db,
		logger: logger,
		events: make(chan Event, queueDepth),
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.writeLoop()
	}()

	return r, nil
}

func ensureSchema(db *sql.DB) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS journal_events (
			id         TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			topic      TEXT,
			detail     TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_journal_events_kind ON journal_events(kind);
		CREATE INDEX IF NOT EXISTS idx_journal_events_created ON journal_events(created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating journal schema: %w", err)
	}
	return nil
}

// Close flushes queued events and stops the writer. Idempotent.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		close(r.events)
		r.wg.Wait()
	})
}

// Dropped returns the number of events discarded because the write queue
// was full.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Record inserts an event synchronously, bypassing the queue. The ID and
// CreatedAt are generated if empty.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = "evt-" + uuid.NewString()[:8]
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO journal_events (id, kind, topic, detail, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		ev.ID, ev.Kind,
		nullableString(ev.Topic), nullableString(ev.Detail),
		ev.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting journal event: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns journal events matching the filter, most recent first.
func (r *Recorder) List(ctx context.Context, filter Filter) (*ListResult, error) {
	// Clamp limit.
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Topic != "" {
		conditions = append(conditions, "topic = ?")
		args = append(args, filter.Topic)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM journal_events %s", where)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal events: %w", err)
	}

	query := fmt.Sprintf(
		"SELECT id, kind, topic, detail, created_at FROM journal_events %s ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var topic, detail sql.NullString
		var createdAt string

		if err := rows.Scan(&ev.ID, &ev.Kind, &topic, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning journal event: %w", err)
		}

		if topic.Valid {
			ev.Topic = topic.String
		}
		if detail.Valid {
			ev.Detail = detail.String
		}

		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
		}
		ev.CreatedAt = t

		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal events: %w", err)
	}

	if events == nil {
		events = []Event{}
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// writeLoop drains the queue into the database.
func (r *Recorder) writeLoop() {
	for ev := range r.events {
		if err := r.Record(context.Background(), ev); err != nil && r.logger != nil {
			r.logger.Warn("journal write failed", "kind", ev.Kind, "error", err)
		}
	}
}

// enqueue hands an event to the writer without blocking.
func (r *Recorder) enqueue(kind, topic, detail string) {
	ev := Event{
		Kind:      kind,
		Topic:     topic,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	}

	select {
	case r.events <- ev:
	default:
		if r.dropped.Add(1) == 1 && r.logger != nil {
			r.logger.Warn("journal queue full, dropping events", "kind", kind)
		}
	}
}

// StateChanged implements mqtt.Observer.
func (r *Recorder) StateChanged(prev, next mqtt.ConnectionState) {
	r.enqueue(KindStateChange, "", prev.String()+" -> "+next.String())
}

// ConnectFailed implements mqtt.Observer.
func (r *Recorder) ConnectFailed(err error, retryIn time.Duration) {
	r.enqueue(KindConnectFailure, "", fmt.Sprintf("%v (retry in %v)", err, retryIn))
}

// ConnectionLost implements mqtt.Observer.
func (r *Recorder) ConnectionLost(err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	r.enqueue(KindConnectionLost, "", detail)
}

// CertificateRejected implements mqtt.Observer.
func (r *Recorder) CertificateRejected(subject string, reasons []string) {
	r.enqueue(KindCertRejected, "", subject+": "+strings.Join(reasons, "; "))
}

// PublishCompleted implements mqtt.Observer.
func (r *Recorder) PublishCompleted(topic string, err error) {
	detail := "ok"
	if err != nil {
		detail = err.Error()
	}
	r.enqueue(KindPublish, topic, detail)
}

// MessageReceived implements mqtt.Observer.
func (r *Recorder) MessageReceived(topic, label string) {
	r.enqueue(KindMessage, topic, label)
}

// HandlerFailed implements mqtt.Observer.
func (r *Recorder) HandlerFailed(label, topic string, err error) {
	r.enqueue(KindHandlerFailure, topic, fmt.Sprintf("%s: %v", label, err))
}
