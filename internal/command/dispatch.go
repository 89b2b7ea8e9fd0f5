package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Outcome is the result of Execute. Commands that open a stream set ID;
// evidence generation also sets Hash; AI requests set AI.
type Outcome struct {
	ID   string    `json:"id,omitempty"`
	Hash string    `json:"hash,omitempty"`
	AI   *AIResult `json:"data,omitempty"`
}

// Names lists every command Execute routes, in the order they are documented.
var Names = []string{
	CmdCreatePortfolio,
	CmdApprovePortfolio,
	CmdLogExpense,
	CmdAddResource,
	CmdLogTimesheet,
	CmdRegisterAsset,
	CmdIssueWorkOrder,
	CmdGenerateEvidence,
	CmdRequestAI,
	CmdReportESG,
}

// Execute decodes args as the JSON request of the named command and runs it.
// Unknown argument fields are rejected so typos in scripted input surface.
func (s *Service) Execute(ctx context.Context, name string, args []byte) (Outcome, error) {
	switch name {
	case CmdCreatePortfolio:
		return run(ctx, args, func(ctx context.Context, req CreatePortfolioRequest) (Outcome, error) {
			id, err := s.CreatePortfolio(ctx, req)
			return Outcome{ID: id}, err
		})
	case CmdApprovePortfolio:
		return run(ctx, args, func(ctx context.Context, req ApprovePortfolioRequest) (Outcome, error) {
			return Outcome{}, s.ApprovePortfolio(ctx, req)
		})
	case CmdLogExpense:
		return run(ctx, args, func(ctx context.Context, req LogExpenseRequest) (Outcome, error) {
			return Outcome{}, s.LogExpense(ctx, req)
		})
	case CmdAddResource:
		return run(ctx, args, func(ctx context.Context, req AddResourceRequest) (Outcome, error) {
			id, err := s.AddResource(ctx, req)
			return Outcome{ID: id}, err
		})
	case CmdLogTimesheet:
		return run(ctx, args, func(ctx context.Context, req LogTimesheetRequest) (Outcome, error) {
			return Outcome{}, s.LogTimesheet(ctx, req)
		})
	case CmdRegisterAsset:
		return run(ctx, args, func(ctx context.Context, req RegisterAssetRequest) (Outcome, error) {
			id, err := s.RegisterAsset(ctx, req)
			return Outcome{ID: id}, err
		})
	case CmdIssueWorkOrder:
		return run(ctx, args, func(ctx context.Context, req IssueWorkOrderRequest) (Outcome, error) {
			return Outcome{}, s.IssueWorkOrder(ctx, req)
		})
	case CmdGenerateEvidence:
		return run(ctx, args, func(ctx context.Context, req GenerateEvidenceRequest) (Outcome, error) {
			receipt, err := s.GenerateEvidence(ctx, req)
			return Outcome{ID: receipt.ID, Hash: receipt.Hash}, err
		})
	case CmdRequestAI:
		return run(ctx, args, func(ctx context.Context, req RequestAIRequest) (Outcome, error) {
			result, err := s.RequestAI(ctx, req)
			if err != nil {
				return Outcome{}, err
			}
			return Outcome{ID: result.RequestID, AI: &result}, nil
		})
	case CmdReportESG:
		return run(ctx, args, func(ctx context.Context, req ReportESGRequest) (Outcome, error) {
			id, err := s.ReportESG(ctx, req)
			return Outcome{ID: id}, err
		})
	default:
		return Outcome{}, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
}

func run[T any](ctx context.Context, args []byte, fn func(context.Context, T) (Outcome, error)) (Outcome, error) {
	var req T
	if len(bytes.TrimSpace(args)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(args))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return Outcome{}, fmt.Errorf("decode arguments: %w", err)
		}
	}
	out, err := fn(ctx, req)
	if err != nil {
		return Outcome{}, err
	}
	return out, nil
}
