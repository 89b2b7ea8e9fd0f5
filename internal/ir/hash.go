package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for hash separation.
// The version suffix leaves room for a future algorithm change.
const (
	DomainEvent = "veryx/event/v1"
	DomainChain = "veryx/chain/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// AuditHash computes the per-record digest over the fields an event commits
// to: stream, type, payload and the ISO-8601 timestamp string.
//
// Version, event id and user are not part of the digest; they are bound
// through the chain hash instead.
func AuditHash(streamID, eventType string, payload IRObject, timestamp string) (string, error) {
	if payload == nil {
		payload = IRObject{}
	}
	obj := IRObject{
		"streamId":  IRString(streamID),
		"eventType": IRString(eventType),
		"payload":   payload,
		"timestamp": IRString(timestamp),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("AuditHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEvent, canonical), nil
}

// ChainHash links a record to its predecessor: the record's audit hash plus
// its position data, folded with the previous chain hash. prevChainHash is
// empty for the first record in the log.
func ChainHash(prevChainHash, auditHash, eventID string, version int64, user string) (string, error) {
	obj := IRObject{
		"prev":      IRString(prevChainHash),
		"auditHash": IRString(auditHash),
		"eventId":   IRString(eventID),
		"version":   IRInt(version),
		"user":      IRString(user),
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("ChainHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainChain, canonical), nil
}

// MustAuditHash is like AuditHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustAuditHash(streamID, eventType string, payload IRObject, timestamp string) string {
	h, err := AuditHash(streamID, eventType, payload, timestamp)
	if err != nil {
		panic(err)
	}
	return h
}
