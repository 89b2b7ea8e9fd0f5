package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/ir"
	"github.com/veryx/veryx/internal/projection"
)

// Command names, as used in routes and metrics.
const (
	CmdCreatePortfolio  = "create-portfolio"
	CmdApprovePortfolio = "approve-portfolio"
	CmdLogExpense       = "log-expense"
	CmdAddResource      = "add-resource"
	CmdLogTimesheet     = "log-timesheet"
	CmdRegisterAsset    = "register-asset"
	CmdIssueWorkOrder   = "issue-work-order"
	CmdGenerateEvidence = "generate-evidence"
	CmdRequestAI        = "request-ai"
	CmdReportESG        = "report-esg"
)

// EvidenceWatermark is stamped on every generated evidence pack.
const EvidenceWatermark = "WATERMARKED"

// Quantities are exact decimals with up to ir.DecimalPlaces fractional
// digits, e.g. 7.5 hours or 12.50 in spend.

type CreatePortfolioRequest struct {
	Name   string     `json:"name"`
	Budget ir.Decimal `json:"budget"`
	Score  int64      `json:"score"`
	User   string     `json:"user"`
}

type ApprovePortfolioRequest struct {
	PortfolioID string `json:"portfolioId"`
	User        string `json:"user"`
}

type LogExpenseRequest struct {
	PortfolioID string     `json:"portfolioId"`
	Amount      ir.Decimal `json:"amount"`
	Description string     `json:"description"`
	User        string     `json:"user"`
}

type AddResourceRequest struct {
	Name  string `json:"name"`
	Skill string `json:"skill"`
	User  string `json:"user"`
}

type LogTimesheetRequest struct {
	ResourceID string     `json:"resourceId"`
	Hours      ir.Decimal `json:"hours"`
	User       string     `json:"user"`
}

type RegisterAssetRequest struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	PortfolioID string `json:"portfolioId"`
	User        string `json:"user"`
}

type IssueWorkOrderRequest struct {
	AssetID string `json:"assetId"`
	Summary string `json:"summary"`
	User    string `json:"user"`
}

type GenerateEvidenceRequest struct {
	PortfolioID string `json:"portfolioId"`
	User        string `json:"user"`
}

type RequestAIRequest struct {
	RequestType string `json:"requestType"`
	Prompt      string `json:"prompt"`
	User        string `json:"user"`
}

// ReportESGRequest reports emissions in tonnes CO2e. Without a portfolio the
// report opens its own stream and only counts toward the totals.
type ReportESGRequest struct {
	PortfolioID string     `json:"portfolioId"`
	Scope1      ir.Decimal `json:"scope1"`
	Scope2      ir.Decimal `json:"scope2"`
	Scope3      ir.Decimal `json:"scope3"`
	User        string     `json:"user"`
}

// EvidenceReceipt identifies a generated evidence pack. Hash is the pack's
// audit hash, which is also its export key.
type EvidenceReceipt struct {
	ID   string `json:"id"`
	Hash string `json:"hash"`
}

// AIResult is the outcome of one AI request.
type AIResult struct {
	RequestID string `json:"requestId"`
	Provider  string `json:"provider"`
	Result    string `json:"result"`
}

// CreatePortfolio opens a new portfolio stream and returns its id.
func (s *Service) CreatePortfolio(ctx context.Context, req CreatePortfolioRequest) (string, error) {
	id := s.newStreamID()
	p := event.PortfolioCreated{Name: req.Name, Budget: req.Budget, Score: req.Score}
	if _, err := s.append(ctx, CmdCreatePortfolio, id, p, req.User); err != nil {
		return "", err
	}
	return id, nil
}

// ApprovePortfolio passes the portfolio's stage gate.
func (s *Service) ApprovePortfolio(ctx context.Context, req ApprovePortfolioRequest) error {
	_, err := s.append(ctx, CmdApprovePortfolio, req.PortfolioID, event.StageGateApproved{Decision: "PROCEED"}, req.User)
	return err
}

func (s *Service) LogExpense(ctx context.Context, req LogExpenseRequest) error {
	p := event.ExpenseLogged{Amount: req.Amount, Description: req.Description}
	_, err := s.append(ctx, CmdLogExpense, req.PortfolioID, p, req.User)
	return err
}

// AddResource opens a new staff resource stream and returns its id.
func (s *Service) AddResource(ctx context.Context, req AddResourceRequest) (string, error) {
	id := s.newStreamID()
	if _, err := s.append(ctx, CmdAddResource, id, event.ResourceAdded{Name: req.Name, Skill: req.Skill}, req.User); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) LogTimesheet(ctx context.Context, req LogTimesheetRequest) error {
	_, err := s.append(ctx, CmdLogTimesheet, req.ResourceID, event.TimesheetLogged{Hours: req.Hours}, req.User)
	return err
}

// RegisterAsset opens a new asset stream and returns its id.
func (s *Service) RegisterAsset(ctx context.Context, req RegisterAssetRequest) (string, error) {
	id := s.newStreamID()
	p := event.AssetRegistered{Name: req.Name, Kind: req.Kind, PortfolioID: req.PortfolioID}
	if _, err := s.append(ctx, CmdRegisterAsset, id, p, req.User); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Service) IssueWorkOrder(ctx context.Context, req IssueWorkOrderRequest) error {
	_, err := s.append(ctx, CmdIssueWorkOrder, req.AssetID, event.WorkOrderIssued{Summary: req.Summary}, req.User)
	return err
}

// GenerateEvidence freezes a reference to the latest event of an approved
// portfolio into a new evidence pack stream.
func (s *Service) GenerateEvidence(ctx context.Context, req GenerateEvidenceRequest) (EvidenceReceipt, error) {
	events, err := s.log.AllEvents(ctx)
	if err != nil {
		s.record(CmdGenerateEvidence, err)
		return EvidenceReceipt{}, err
	}

	p, ok := projection.Run(events).Portfolio(req.PortfolioID)
	if !ok || p.Status != projection.StatusApproved {
		err := fmt.Errorf("portfolio %q: %w", req.PortfolioID, ErrNotApproved)
		s.record(CmdGenerateEvidence, err)
		return EvidenceReceipt{}, err
	}

	source, ok := latestInStream(events, req.PortfolioID)
	if !ok {
		err := fmt.Errorf("source event for portfolio %q: %w", req.PortfolioID, ErrNotFound)
		s.record(CmdGenerateEvidence, err)
		return EvidenceReceipt{}, err
	}

	pack := event.EvidencePackGenerated{
		PortfolioID:     req.PortfolioID,
		SourceEventID:   source.ID,
		SourceHash:      source.Meta.AuditHash,
		SourceUser:      source.Meta.User,
		SourceTimestamp: event.FormatTimestamp(source.Meta.Timestamp),
		SourceVersion:   source.Version,
		Watermark:       EvidenceWatermark,
	}
	e, err := s.append(ctx, CmdGenerateEvidence, s.newStreamID(), pack, req.User)
	if err != nil {
		return EvidenceReceipt{}, err
	}
	return EvidenceReceipt{ID: e.ID, Hash: e.Meta.AuditHash}, nil
}

// RequestAI debits the ACU ledger and records a mock AI result. The result
// stream is keyed by the deduction's event id so the two records pair up.
func (s *Service) RequestAI(ctx context.Context, req RequestAIRequest) (AIResult, error) {
	events, err := s.log.AllEvents(ctx)
	if err != nil {
		s.record(CmdRequestAI, err)
		return AIResult{}, err
	}
	if projection.Run(events).ACUBalance <= 0 {
		s.record(CmdRequestAI, ErrCreditsExhausted)
		return AIResult{}, ErrCreditsExhausted
	}

	debit, err := s.log.Append(ctx, ACULedgerStream, event.ACUDeducted{Amount: event.ACUCost}, req.User)
	if err != nil {
		s.record(CmdRequestAI, err)
		return AIResult{}, fmt.Errorf("deduct ACU: %w", err)
	}

	requestType := req.RequestType
	if requestType == "" {
		requestType = defaultRequestType
	}
	provider := SelectProvider(requestType)
	result := event.AICompleted{
		RequestType: requestType,
		Provider:    provider,
		Result:      MockResult(provider, requestType, req.Prompt),
	}
	if _, err := s.append(ctx, CmdRequestAI, debit.ID, result, req.User); err != nil {
		s.logger.Warn("AI result not recorded after ACU deduction", "request_id", debit.ID, "error", err)
		return AIResult{}, err
	}
	return AIResult{RequestID: debit.ID, Provider: provider, Result: result.Result}, nil
}

// ReportESG records an emissions report and returns the stream it went to.
func (s *Service) ReportESG(ctx context.Context, req ReportESGRequest) (string, error) {
	stream := req.PortfolioID
	if stream == "" {
		stream = s.newStreamID()
	}
	p := event.ESGReported{PortfolioID: req.PortfolioID, Scope1: req.Scope1, Scope2: req.Scope2, Scope3: req.Scope3}
	if _, err := s.append(ctx, CmdReportESG, stream, p, req.User); err != nil {
		return "", err
	}
	return stream, nil
}

func latestInStream(events []event.Event, streamID string) (event.Event, bool) {
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].StreamID == streamID {
			return events[i], true
		}
	}
	return event.Event{}, false
}

// IsPrecondition reports whether err is a refused command rather than a
// storage or validation failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrNotApproved) || errors.Is(err, ErrCreditsExhausted)
}
