// Package pgstore provides the PostgreSQL event log.
//
// The schema mirrors the SQLite backend with BIGSERIAL seq. Appends run in a
// transaction holding pg_advisory_xact_lock, so the next version, the
// previous chain hash and the clamped timestamp are read and written as one
// step across all writers. UNIQUE(stream_id, version) still backs that up:
// SQLSTATE 23505 surfaces as eventlog.ErrConflict.
package pgstore
