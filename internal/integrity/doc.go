// Package integrity detects tampering in an event log.
//
// VerifyChain is the per-record check: every stored audit hash must equal
// the hash recomputed from the record. It cannot see a record that was
// deleted whole, or records that were reordered. Verify adds the chain link
// and per-stream version checks that catch those.
package integrity
