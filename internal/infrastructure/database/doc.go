// Package database provides the SQLite connection used by the event journal.
//
// It wraps database/sql with lifecycle management suited to an embedded
// device: WAL mode for concurrent reads, a single writer connection, busy
// timeout for lock contention, and restrictive file permissions.
//
// Schema management lives with the consumer (see the journal package); this
// package only owns the connection.
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Journal.Path,
//	    WALMode:     cfg.Journal.WALMode,
//	    BusyTimeout: cfg.Journal.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
package database
