package event

import (
	"fmt"

	"github.com/veryx/veryx/internal/ir"
)

// Payload is the sealed, per-type body of an event. Each event type has one
// struct implementing it; types this build does not know decode to Opaque.
type Payload interface {
	// EventType reports the event type the payload belongs to.
	EventType() Type
	// Fields renders the payload as the object stored and hashed.
	Fields() ir.IRObject
	// Validate rejects payloads that must never reach the log.
	Validate() error

	payload()
}

// ValidationError reports malformed input caught before an append.
type ValidationError struct {
	Type   Type
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("invalid %s: %s %s", e.Type, e.Field, e.Reason)
}

func invalid(t Type, field, reason string) *ValidationError {
	return &ValidationError{Type: t, Field: field, Reason: reason}
}

// PortfolioCreated opens a portfolio stream.
type PortfolioCreated struct {
	Name   string
	Budget ir.Decimal
	Score  int64
}

func (PortfolioCreated) EventType() Type { return PortfolioCreatedType }

func (p PortfolioCreated) Fields() ir.IRObject {
	return ir.IRObject{
		"name":   ir.IRString(p.Name),
		"budget": p.Budget.IR(),
		"score":  ir.IRInt(p.Score),
	}
}

func (p PortfolioCreated) Validate() error {
	if p.Name == "" {
		return invalid(PortfolioCreatedType, "name", "is required")
	}
	if p.Budget.Sign() < 0 {
		return invalid(PortfolioCreatedType, "budget", "must not be negative")
	}
	return nil
}

// StageGateApproved moves a portfolio past its stage gate.
type StageGateApproved struct {
	Decision string
}

func (StageGateApproved) EventType() Type { return StageGateApprovedType }

func (p StageGateApproved) Fields() ir.IRObject {
	obj := ir.IRObject{}
	if p.Decision != "" {
		obj["decision"] = ir.IRString(p.Decision)
	}
	return obj
}

func (StageGateApproved) Validate() error { return nil }

// ExpenseLogged records spend against a portfolio.
type ExpenseLogged struct {
	Amount      ir.Decimal
	Description string
}

func (ExpenseLogged) EventType() Type { return ExpenseLoggedType }

func (p ExpenseLogged) Fields() ir.IRObject {
	return ir.IRObject{
		"amount":      p.Amount.IR(),
		"description": ir.IRString(p.Description),
	}
}

func (p ExpenseLogged) Validate() error {
	if p.Amount.Sign() < 0 {
		return invalid(ExpenseLoggedType, "amount", "must not be negative")
	}
	return nil
}

// ResourceAdded opens a staff resource stream.
type ResourceAdded struct {
	Name  string
	Skill string
}

func (ResourceAdded) EventType() Type { return ResourceAddedType }

func (p ResourceAdded) Fields() ir.IRObject {
	return ir.IRObject{
		"name":  ir.IRString(p.Name),
		"skill": ir.IRString(p.Skill),
	}
}

func (p ResourceAdded) Validate() error {
	if p.Name == "" {
		return invalid(ResourceAddedType, "name", "is required")
	}
	return nil
}

// MaxTimesheetHours caps one timesheet entry at the hours in a week.
const MaxTimesheetHours = 168

// TimesheetLogged books hours against a staff resource.
type TimesheetLogged struct {
	Hours ir.Decimal
}

func (TimesheetLogged) EventType() Type { return TimesheetLoggedType }

func (p TimesheetLogged) Fields() ir.IRObject {
	return ir.IRObject{"hours": p.Hours.IR()}
}

func (p TimesheetLogged) Validate() error {
	if p.Hours.Sign() < 0 {
		return invalid(TimesheetLoggedType, "hours", "must not be negative")
	}
	if p.Hours.Cmp(ir.DecimalOf(MaxTimesheetHours)) > 0 {
		return invalid(TimesheetLoggedType, "hours", fmt.Sprintf("must not exceed %d", MaxTimesheetHours))
	}
	return nil
}

// AssetRegistered opens an asset stream.
type AssetRegistered struct {
	Name        string
	Kind        string
	PortfolioID string
}

func (AssetRegistered) EventType() Type { return AssetRegisteredType }

func (p AssetRegistered) Fields() ir.IRObject {
	return ir.IRObject{
		"name":        ir.IRString(p.Name),
		"kind":        ir.IRString(p.Kind),
		"portfolioId": ir.IRString(p.PortfolioID),
	}
}

func (p AssetRegistered) Validate() error {
	if p.Name == "" {
		return invalid(AssetRegisteredType, "name", "is required")
	}
	return nil
}

// WorkOrderIssued records maintenance work on an asset.
type WorkOrderIssued struct {
	Summary string
}

func (WorkOrderIssued) EventType() Type { return WorkOrderIssuedType }

func (p WorkOrderIssued) Fields() ir.IRObject {
	return ir.IRObject{"summary": ir.IRString(p.Summary)}
}

func (p WorkOrderIssued) Validate() error {
	if p.Summary == "" {
		return invalid(WorkOrderIssuedType, "summary", "is required")
	}
	return nil
}

// EvidencePackGenerated freezes a reference to the latest event of an
// approved portfolio. SourceVersion lets readers detect a pack generated
// from a stale view of the portfolio.
type EvidencePackGenerated struct {
	PortfolioID     string
	SourceEventID   string
	SourceHash      string
	SourceUser      string
	SourceTimestamp string
	SourceVersion   int64
	Watermark       string

	// legacy marks a payload stored under GenerateEvidenceType.
	legacy bool
}

// LegacyEvidence returns p typed as GENERATE_EVIDENCE.
func LegacyEvidence(p EvidencePackGenerated) EvidencePackGenerated {
	p.legacy = true
	return p
}

func (p EvidencePackGenerated) EventType() Type {
	if p.legacy {
		return GenerateEvidenceType
	}
	return EvidencePackGeneratedType
}

func (p EvidencePackGenerated) Fields() ir.IRObject {
	obj := ir.IRObject{
		"portfolioId": ir.IRString(p.PortfolioID),
		"eventId":     ir.IRString(p.SourceEventID),
		"versionHash": ir.IRString(p.SourceHash),
		"userId":      ir.IRString(p.SourceUser),
		"timestamp":   ir.IRString(p.SourceTimestamp),
		"watermark":   ir.IRString(p.Watermark),
	}
	if p.SourceVersion > 0 {
		obj["sourceVersion"] = ir.IRInt(p.SourceVersion)
	}
	return obj
}

func (p EvidencePackGenerated) Validate() error {
	if p.PortfolioID == "" {
		return invalid(p.EventType(), "portfolioId", "is required")
	}
	if p.SourceEventID == "" || p.SourceHash == "" {
		return invalid(p.EventType(), "eventId", "source event reference is required")
	}
	return nil
}

// AICompleted records the result of one AI-assisted request.
type AICompleted struct {
	RequestType string
	Provider    string
	Result      string
}

func (AICompleted) EventType() Type { return AICompletedType }

func (p AICompleted) Fields() ir.IRObject {
	return ir.IRObject{
		"requestType": ir.IRString(p.RequestType),
		"provider":    ir.IRString(p.Provider),
		"result":      ir.IRString(p.Result),
	}
}

func (p AICompleted) Validate() error {
	if p.Provider == "" {
		return invalid(AICompletedType, "provider", "is required")
	}
	return nil
}

// ACUDeducted debits the shared usage ledger. The fold always debits
// ACUCost; Amount is kept for the audit trail.
type ACUDeducted struct {
	Amount int64
}

// ACUCost is the credit price of one AI-assisted command.
const ACUCost = 10

func (ACUDeducted) EventType() Type { return ACUDeductedType }

func (p ACUDeducted) Fields() ir.IRObject {
	return ir.IRObject{"amount": ir.IRInt(p.Amount)}
}

func (ACUDeducted) Validate() error { return nil }

// ESGReported carries one emissions report in tonnes CO2e.
type ESGReported struct {
	PortfolioID string
	Scope1      ir.Decimal
	Scope2      ir.Decimal
	Scope3      ir.Decimal
}

func (ESGReported) EventType() Type { return ESGReportedType }

func (p ESGReported) Fields() ir.IRObject {
	obj := ir.IRObject{
		"scope1": p.Scope1.IR(),
		"scope2": p.Scope2.IR(),
		"scope3": p.Scope3.IR(),
	}
	if p.PortfolioID != "" {
		obj["portfolioId"] = ir.IRString(p.PortfolioID)
	}
	return obj
}

func (p ESGReported) Validate() error {
	if p.Scope1.Sign() < 0 || p.Scope2.Sign() < 0 || p.Scope3.Sign() < 0 {
		return invalid(ESGReportedType, "scope", "must not be negative")
	}
	return nil
}

// Opaque holds a payload of a type this build does not know. It round-trips
// unchanged so the record still verifies, and the projection ignores it.
type Opaque struct {
	Kind Type
	Data ir.IRObject
}

func (p Opaque) EventType() Type { return p.Kind }

func (p Opaque) Fields() ir.IRObject {
	if p.Data == nil {
		return ir.IRObject{}
	}
	return p.Data
}

func (p Opaque) Validate() error {
	if p.Kind == "" {
		return invalid(p.Kind, "eventType", "is required")
	}
	return nil
}

func (PortfolioCreated) payload()      {}
func (StageGateApproved) payload()     {}
func (ExpenseLogged) payload()         {}
func (ResourceAdded) payload()         {}
func (TimesheetLogged) payload()       {}
func (AssetRegistered) payload()       {}
func (WorkOrderIssued) payload()       {}
func (EvidencePackGenerated) payload() {}
func (AICompleted) payload()           {}
func (ACUDeducted) payload()           {}
func (ESGReported) payload()           {}
func (Opaque) payload()                {}
