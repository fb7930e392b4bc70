// Package journal persists client session activity to SQLite.
//
// The Recorder implements mqtt.Observer and writes connection transitions,
// publish completions, inbound dispatches, and handler failures to a local
// journal_events table so an operator can reconstruct what an unattended
// agent did while nobody was watching. Writes are queued to keep observer
// callbacks non-blocking; the queue drops under sustained pressure rather
// than stalling the session.
package journal
