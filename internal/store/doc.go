// Package store provides the SQLite-backed event log.
//
// The log is a single append-only events table:
//   - seq INTEGER AUTOINCREMENT is the storage order and the only order
//     AllEvents uses
//   - UNIQUE(stream_id, version) closes the per-stream version race
//   - UNIQUE(event_id) keeps event ids global
//
// Payloads are stored as RFC 8785 canonical JSON text, the same bytes the
// audit hash covers, so a row read back re-hashes to its stored audit hash
// unless the row was modified.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - _txlock=immediate: appends take the write lock before reading the tail
package store
