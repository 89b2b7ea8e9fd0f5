package event

import (
	"fmt"

	"github.com/veryx/veryx/internal/ir"
)

// ComputeAuditHash recomputes the per-record digest of e from its stream,
// type, payload and timestamp.
// Every stored key counts, including ones the typed payload ignores.
func ComputeAuditHash(e Event) (string, error) {
	return ir.AuditHash(e.StreamID, string(e.Type), e.PayloadObject(), FormatTimestamp(e.Meta.Timestamp))
}

// ComputeChainHash recomputes the chain link of e given the chain hash of
// the record stored before it.
func ComputeChainHash(e Event, prevChainHash string) (string, error) {
	return ir.ChainHash(prevChainHash, e.Meta.AuditHash, e.ID, e.Version, e.Meta.User)
}

// Seal fills in the raw payload (when unset), audit hash, previous hash
// and chain hash of e. The payload type and e.Type must agree.
func Seal(e *Event, prevChainHash string) error {
	if e.Payload == nil {
		return fmt.Errorf("seal event %q: payload is required", e.ID)
	}
	if e.Type == "" {
		e.Type = e.Payload.EventType()
	}
	if e.Type != e.Payload.EventType() {
		return fmt.Errorf("seal event %q: type %s does not match payload %s", e.ID, e.Type, e.Payload.EventType())
	}
	if e.Raw == nil {
		e.Raw = e.Payload.Fields()
	}

	audit, err := ComputeAuditHash(*e)
	if err != nil {
		return fmt.Errorf("seal event %q: %w", e.ID, err)
	}
	e.Meta.AuditHash = audit

	chain, err := ComputeChainHash(*e, prevChainHash)
	if err != nil {
		return fmt.Errorf("seal event %q: %w", e.ID, err)
	}
	e.Meta.PrevHash = prevChainHash
	e.Meta.ChainHash = chain
	return nil
}
