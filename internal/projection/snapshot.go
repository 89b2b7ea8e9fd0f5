package projection

import "github.com/veryx/veryx/internal/ir"

// Portfolio statuses.
const (
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusApproved        = "APPROVED"
)

// Asset statuses.
const (
	AssetActive          = "ACTIVE"
	AssetWorkOrderIssued = "WORK_ORDER_ISSUED"
)

// InitialUsageBalance is the ACU balance of an empty log.
const InitialUsageBalance int64 = 100

// StandardWeekHours is the 100% utilization mark.
const StandardWeekHours = 40

// Snapshot is the read model produced by Run. Collections keep the order in
// which their entities first appeared in the log.
type Snapshot struct {
	Portfolios    []Portfolio       `json:"portfolios"`
	Workforce     []WorkforceMember `json:"workforce"`
	Assets        []Asset           `json:"assets"`
	EvidencePacks []EvidencePack    `json:"evidencePacks"`
	Expenses      []ExpenseRecord   `json:"expenses"`
	AIResults     []AIResultRecord  `json:"aiResults"`
	ESGSummary    ESGTotals         `json:"esgSummary"`
	ACUBalance    int64             `json:"acuBalance"`
}

type Portfolio struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	InitialBudget ir.Decimal `json:"initialBudget"`
	Balance       ir.Decimal `json:"balance"`
	Score         int64      `json:"score"`
	Status        string     `json:"status"`
	CPI           float64    `json:"cpi"`
	ESG           *ESGReport `json:"esg,omitempty"`
	Version       int64      `json:"version"`
	UpdatedAt     string     `json:"updatedAt"`
}

// ESGReport is the latest emissions report of one portfolio.
type ESGReport struct {
	Scope1    ir.Decimal `json:"scope1"`
	Scope2    ir.Decimal `json:"scope2"`
	Scope3    ir.Decimal `json:"scope3"`
	Timestamp string     `json:"timestamp"`
}

// ESGTotals sums every emissions report in the log.
type ESGTotals struct {
	Scope1 ir.Decimal `json:"scope1"`
	Scope2 ir.Decimal `json:"scope2"`
	Scope3 ir.Decimal `json:"scope3"`
}

type WorkforceMember struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Skill       string     `json:"skill"`
	TotalHours  ir.Decimal `json:"totalHours"`
	Utilization int64      `json:"utilization"`
	UpdatedAt   string     `json:"updatedAt"`
}

type Asset struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Kind           string     `json:"kind"`
	PortfolioID    string     `json:"portfolioId"`
	Status         string     `json:"status"`
	WorkOrderCount int64      `json:"workOrderCount"`
	LastWorkOrder  *WorkOrder `json:"lastWorkOrder"`
	UpdatedAt      string     `json:"updatedAt"`
}

type WorkOrder struct {
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// EvidencePack is keyed by the audit hash of the event that generated it.
// The Source fields point at the portfolio event the pack froze.
type EvidencePack struct {
	ID              string `json:"id"`
	PortfolioID     string `json:"portfolioId"`
	SourceEventID   string `json:"eventId"`
	SourceHash      string `json:"versionHash"`
	SourceUser      string `json:"userId"`
	SourceTimestamp string `json:"timestamp"`
	SourceVersion   int64  `json:"sourceVersion,omitempty"`
	Watermark       string `json:"watermark"`
	GeneratedBy     string `json:"generatedBy"`
	GeneratedAt     string `json:"generatedAt"`
}

type ExpenseRecord struct {
	ID          string     `json:"id"`
	PortfolioID string     `json:"portfolioId"`
	Amount      ir.Decimal `json:"amount"`
	Description string     `json:"description"`
	Timestamp   string     `json:"timestamp"`
}

type AIResultRecord struct {
	ID          string `json:"id"`
	RequestType string `json:"requestType"`
	Provider    string `json:"provider"`
	Result      string `json:"result"`
	Timestamp   string `json:"timestamp"`
}

// Portfolio returns the portfolio with the given id.
func (s Snapshot) Portfolio(id string) (Portfolio, bool) {
	for _, p := range s.Portfolios {
		if p.ID == id {
			return p, true
		}
	}
	return Portfolio{}, false
}

// Member returns the workforce member with the given id.
func (s Snapshot) Member(id string) (WorkforceMember, bool) {
	for _, m := range s.Workforce {
		if m.ID == id {
			return m, true
		}
	}
	return WorkforceMember{}, false
}

// Asset returns the asset with the given id.
func (s Snapshot) Asset(id string) (Asset, bool) {
	for _, a := range s.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// EvidencePackByHash returns the pack generated by the event with the given
// audit hash.
func (s Snapshot) EvidencePackByHash(hash string) (EvidencePack, bool) {
	for _, p := range s.EvidencePacks {
		if p.ID == hash {
			return p, true
		}
	}
	return EvidencePack{}, false
}
