package event

import (
	"fmt"
	"time"

	"github.com/veryx/veryx/internal/ir"
)

// Type names a domain event kind. The set is closed; see the constants below.
type Type string

const (
	PortfolioCreatedType      Type = "PORTFOLIO_CREATED"
	StageGateApprovedType     Type = "STAGE_GATE_APPROVED"
	ExpenseLoggedType         Type = "EXPENSE_LOGGED"
	ResourceAddedType         Type = "RESOURCE_ADDED"
	TimesheetLoggedType       Type = "TIMESHEET_LOGGED"
	AssetRegisteredType       Type = "ASSET_REGISTERED"
	WorkOrderIssuedType       Type = "WORK_ORDER_ISSUED"
	EvidencePackGeneratedType Type = "EVIDENCE_PACK_GENERATED"
	GenerateEvidenceType      Type = "GENERATE_EVIDENCE" // legacy alias of EvidencePackGeneratedType
	AICompletedType           Type = "AI_COMPLETED"
	ACUDeductedType           Type = "ACU_DEDUCTED"
	ESGReportedType           Type = "ESG_REPORTED"
)

// DefaultUser is recorded when an append carries no actor.
const DefaultUser = "system"

// TimestampLayout is the ISO-8601 form stored in meta.timestamp and fed to
// the audit hash: UTC, millisecond precision, literal Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Event is one immutable record in the log.
type Event struct {
	ID       string
	StreamID string
	Version  int64
	Type     Type
	Payload  Payload

	// Raw is the payload object exactly as written to the log. The audit
	// hash covers Raw; Payload is its typed reading and ignores keys it does
	// not know.
	Raw ir.IRObject

	Meta Meta
}

// PayloadObject returns the object the audit hash and the stores use: Raw
// when set, otherwise the fields of Payload.
func (e Event) PayloadObject() ir.IRObject {
	switch {
	case e.Raw != nil:
		return e.Raw
	case e.Payload != nil:
		return e.Payload.Fields()
	default:
		return ir.IRObject{}
	}
}

// Meta carries the append-time metadata of an event.
type Meta struct {
	Timestamp time.Time
	User      string
	AuditHash string

	// PrevHash is the chain hash of the previous record in storage order
	// (empty for the first record).
	PrevHash string
	// ChainHash binds this record to PrevHash.
	ChainHash string
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// NormalizeTimestamp truncates t to the stored precision in UTC.
func NormalizeTimestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// UserOrDefault returns user, or DefaultUser when user is empty.
func UserOrDefault(user string) string {
	if user == "" {
		return DefaultUser
	}
	return user
}
