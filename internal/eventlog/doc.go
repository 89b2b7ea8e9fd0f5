// Package eventlog defines the event log contract implemented by the
// SQLite, PostgreSQL and file backends, the storage error taxonomy, and the
// decorators layered over any backend.
//
// Backends call Stamp with what they know about the log tail, inside the same
// critical section that persists the record, so version, timestamp and chain
// hash are always derived from the committed state.
//
// Typical wiring:
//
//	var log eventlog.Log = sqliteStore
//	log = eventlog.WithRetry(log, eventlog.DefaultRetryOptions())
//	log = eventlog.Instrument(log, logger)
package eventlog
