// Package filestore provides an append-only JSONL event log for single-node
// deployments and demos.
//
// Each append writes one whole line with O_APPEND and fsyncs it before
// returning; the file is never rewritten. A mutex serializes appends, which
// is what keeps per-stream versions unique in this backend. Reads decode
// complete lines only.
package filestore
