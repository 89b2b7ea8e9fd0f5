package projection

import (
	"math"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/ir"
)

// Run folds events, in the order given, into a fresh Snapshot.
//
// Run is pure: it reads nothing but its argument, shares no state between
// calls and never mutates the events. The same input always yields an equal
// Snapshot. Unknown event types are skipped.
func Run(events []event.Event) Snapshot {
	f := newFolder(len(events))
	for _, e := range events {
		f.apply(e)
	}
	return f.snapshot()
}

// folder accumulates one fold. The index maps point into the slices so that
// entities keep first-seen order.
type folder struct {
	s Snapshot

	portfolios map[string]int
	members    map[string]int
	assets     map[string]int
	packs      map[string]int
}

func newFolder(n int) *folder {
	return &folder{
		s: Snapshot{
			Portfolios:    []Portfolio{},
			Workforce:     []WorkforceMember{},
			Assets:        []Asset{},
			EvidencePacks: []EvidencePack{},
			Expenses:      make([]ExpenseRecord, 0, n/4),
			AIResults:     []AIResultRecord{},
			ACUBalance:    InitialUsageBalance,
		},
		portfolios: make(map[string]int),
		members:    make(map[string]int),
		assets:     make(map[string]int),
		packs:      make(map[string]int),
	}
}

func (f *folder) snapshot() Snapshot {
	return f.s
}

func (f *folder) portfolio(id string) *Portfolio {
	if i, ok := f.portfolios[id]; ok {
		return &f.s.Portfolios[i]
	}
	return nil
}

func (f *folder) member(id string) *WorkforceMember {
	if i, ok := f.members[id]; ok {
		return &f.s.Workforce[i]
	}
	return nil
}

func (f *folder) asset(id string) *Asset {
	if i, ok := f.assets[id]; ok {
		return &f.s.Assets[i]
	}
	return nil
}

func (f *folder) apply(e event.Event) {
	ts := event.FormatTimestamp(e.Meta.Timestamp)

	switch p := e.Payload.(type) {
	case event.PortfolioCreated:
		if _, exists := f.portfolios[e.StreamID]; exists {
			return
		}
		f.portfolios[e.StreamID] = len(f.s.Portfolios)
		f.s.Portfolios = append(f.s.Portfolios, Portfolio{
			ID:            e.StreamID,
			Name:          p.Name,
			InitialBudget: p.Budget,
			Balance:       p.Budget,
			Score:         p.Score,
			Status:        StatusPendingApproval,
			CPI:           1,
			Version:       e.Version,
			UpdatedAt:     ts,
		})

	case event.StageGateApproved:
		if pf := f.portfolio(e.StreamID); pf != nil {
			pf.Status = StatusApproved
			pf.Version = e.Version
			pf.UpdatedAt = ts
		}

	case event.ExpenseLogged:
		if pf := f.portfolio(e.StreamID); pf != nil {
			pf.Balance = pf.Balance.Sub(p.Amount)
			if pf.Balance.Sign() < 0 {
				pf.Balance = ir.Decimal{}
			}
			pf.CPI = pf.Balance.Float64() / max(1, pf.InitialBudget.Float64())
			pf.Version = e.Version
			pf.UpdatedAt = ts
		}
		f.s.Expenses = append(f.s.Expenses, ExpenseRecord{
			ID:          e.ID,
			PortfolioID: e.StreamID,
			Amount:      p.Amount,
			Description: p.Description,
			Timestamp:   ts,
		})

	case event.ResourceAdded:
		if _, exists := f.members[e.StreamID]; exists {
			return
		}
		f.members[e.StreamID] = len(f.s.Workforce)
		f.s.Workforce = append(f.s.Workforce, WorkforceMember{
			ID:        e.StreamID,
			Name:      p.Name,
			Skill:     p.Skill,
			UpdatedAt: ts,
		})

	case event.TimesheetLogged:
		if m := f.member(e.StreamID); m != nil {
			m.TotalHours = m.TotalHours.Add(p.Hours)
			m.Utilization = utilization(m.TotalHours)
			m.UpdatedAt = ts
		}

	case event.AssetRegistered:
		if _, exists := f.assets[e.StreamID]; exists {
			return
		}
		f.assets[e.StreamID] = len(f.s.Assets)
		f.s.Assets = append(f.s.Assets, Asset{
			ID:          e.StreamID,
			Name:        p.Name,
			Kind:        p.Kind,
			PortfolioID: p.PortfolioID,
			Status:      AssetActive,
			UpdatedAt:   ts,
		})

	case event.WorkOrderIssued:
		if a := f.asset(e.StreamID); a != nil {
			a.WorkOrderCount++
			a.LastWorkOrder = &WorkOrder{Summary: p.Summary, Timestamp: ts}
			a.Status = AssetWorkOrderIssued
			a.UpdatedAt = ts
		}

	case event.EvidencePackGenerated:
		pack := EvidencePack{
			ID:              e.Meta.AuditHash,
			PortfolioID:     p.PortfolioID,
			SourceEventID:   p.SourceEventID,
			SourceHash:      p.SourceHash,
			SourceUser:      p.SourceUser,
			SourceTimestamp: p.SourceTimestamp,
			SourceVersion:   p.SourceVersion,
			Watermark:       p.Watermark,
			GeneratedBy:     e.Meta.User,
			GeneratedAt:     ts,
		}
		if i, exists := f.packs[pack.ID]; exists {
			f.s.EvidencePacks[i] = pack
			return
		}
		f.packs[pack.ID] = len(f.s.EvidencePacks)
		f.s.EvidencePacks = append(f.s.EvidencePacks, pack)

	case event.AICompleted:
		f.s.AIResults = append(f.s.AIResults, AIResultRecord{
			ID:          e.ID,
			RequestType: p.RequestType,
			Provider:    p.Provider,
			Result:      p.Result,
			Timestamp:   ts,
		})

	case event.ACUDeducted:
		f.s.ACUBalance = max(0, f.s.ACUBalance-event.ACUCost)

	case event.ESGReported:
		f.s.ESGSummary.Scope1 = f.s.ESGSummary.Scope1.Add(p.Scope1)
		f.s.ESGSummary.Scope2 = f.s.ESGSummary.Scope2.Add(p.Scope2)
		f.s.ESGSummary.Scope3 = f.s.ESGSummary.Scope3.Add(p.Scope3)

		owner := p.PortfolioID
		if owner == "" {
			owner = e.StreamID
		}
		if pf := f.portfolio(owner); pf != nil {
			pf.ESG = &ESGReport{
				Scope1:    p.Scope1,
				Scope2:    p.Scope2,
				Scope3:    p.Scope3,
				Timestamp: ts,
			}
			if owner == e.StreamID {
				pf.Version = e.Version
			}
			pf.UpdatedAt = ts
		}
	}
}

// utilization is totalHours as a rounded percentage of a standard week.
// It is not clamped at 100. Decimal totals saturate, so the float stays far
// inside int64.
func utilization(totalHours ir.Decimal) int64 {
	return int64(math.Round(totalHours.Float64() * 100 / StandardWeekHours))
}
