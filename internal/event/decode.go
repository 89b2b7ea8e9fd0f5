package event

import (
	"fmt"

	"github.com/veryx/veryx/internal/ir"
)

// DecodePayload rebuilds the typed payload for t from its stored object.
// A known type with a field of the wrong kind is an error; an unknown type
// becomes Opaque.
func DecodePayload(t Type, obj ir.IRObject) (Payload, error) {
	if obj == nil {
		obj = ir.IRObject{}
	}
	d := decoder{obj: obj}

	var p Payload
	switch t {
	case PortfolioCreatedType:
		p = PortfolioCreated{Name: d.str("name"), Budget: d.dec("budget"), Score: d.int("score")}
	case StageGateApprovedType:
		p = StageGateApproved{Decision: d.str("decision")}
	case ExpenseLoggedType:
		p = ExpenseLogged{Amount: d.dec("amount"), Description: d.str("description")}
	case ResourceAddedType:
		p = ResourceAdded{Name: d.str("name"), Skill: d.str("skill")}
	case TimesheetLoggedType:
		p = TimesheetLogged{Hours: d.dec("hours")}
	case AssetRegisteredType:
		p = AssetRegistered{Name: d.str("name"), Kind: d.str("kind"), PortfolioID: d.str("portfolioId")}
	case WorkOrderIssuedType:
		p = WorkOrderIssued{Summary: d.str("summary")}
	case EvidencePackGeneratedType, GenerateEvidenceType:
		pack := EvidencePackGenerated{
			PortfolioID:     d.str("portfolioId"),
			SourceEventID:   d.str("eventId"),
			SourceHash:      d.str("versionHash"),
			SourceUser:      d.str("userId"),
			SourceTimestamp: d.str("timestamp"),
			SourceVersion:   d.int("sourceVersion"),
			Watermark:       d.str("watermark"),
			legacy:          t == GenerateEvidenceType,
		}
		p = pack
	case AICompletedType:
		p = AICompleted{RequestType: d.str("requestType"), Provider: d.str("provider"), Result: d.str("result")}
	case ACUDeductedType:
		p = ACUDeducted{Amount: d.int("amount")}
	case ESGReportedType:
		p = ESGReported{
			PortfolioID: d.str("portfolioId"),
			Scope1:      d.dec("scope1"),
			Scope2:      d.dec("scope2"),
			Scope3:      d.dec("scope3"),
		}
	default:
		return Opaque{Kind: t, Data: obj}, nil
	}

	if d.err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", t, d.err)
	}
	return p, nil
}

// decoder reads typed fields and keeps the first kind mismatch.
type decoder struct {
	obj ir.IRObject
	err error
}

func (d *decoder) str(key string) string {
	v, ok := d.obj[key]
	if !ok {
		return ""
	}
	s, ok := v.(ir.IRString)
	if !ok && d.err == nil {
		d.err = fmt.Errorf("field %q: want string, got %T", key, v)
	}
	return string(s)
}

func (d *decoder) int(key string) int64 {
	v, ok := d.obj[key]
	if !ok {
		return 0
	}
	n, ok := v.(ir.IRInt)
	if !ok && d.err == nil {
		d.err = fmt.Errorf("field %q: want integer, got %T", key, v)
	}
	return int64(n)
}

func (d *decoder) dec(key string) ir.Decimal {
	v, ok := d.obj[key]
	if !ok {
		return ir.Decimal{}
	}
	n, err := ir.DecimalValue(v)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("field %q: %w", key, err)
	}
	return n
}
