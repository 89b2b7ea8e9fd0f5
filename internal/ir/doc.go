// Package ir provides the payload value model and the canonical hashing
// primitives for VERYX events.
//
// ir imports nothing internal; every other package that hashes or stores
// payloads builds on it.
//
// Key constraints:
//   - NO float values anywhere in payloads: numbers are int64 or exact Decimals
//   - Hash input is RFC 8785 canonical JSON, SHA-256, with domain separation
//   - Audit hashes cover one record; chain hashes link a record to the
//     previous record in storage order
package ir
