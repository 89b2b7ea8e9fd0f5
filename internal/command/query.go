package command

import (
	"context"
	"fmt"
	"reflect"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/integrity"
	"github.com/veryx/veryx/internal/metrics"
	"github.com/veryx/veryx/internal/projection"
)

// EvidenceStatusImmutable is the status of every exported evidence pack.
const EvidenceStatusImmutable = "IMMUTABLE"

// EvidenceExport is the exported form of an evidence pack.
type EvidenceExport struct {
	ID          string `json:"id"`
	PortfolioID string `json:"portfolioId"`
	Timestamp   string `json:"timestamp"`
	Status      string `json:"status"`
	EventID     string `json:"eventId"`
	VersionHash string `json:"versionHash"`
	UserID      string `json:"userId"`
	Watermark   string `json:"watermark"`
}

// ReplayResult is a full rebuild of the read model.
type ReplayResult struct {
	State      projection.Snapshot `json:"state"`
	EventCount int                 `json:"eventCount"`
	// Deterministic is false if two folds of the same log disagreed.
	Deterministic bool `json:"deterministic"`
}

// AuditLog returns every event in storage order.
func (s *Service) AuditLog(ctx context.Context) ([]event.Event, error) {
	return s.log.AllEvents(ctx)
}

// State rebuilds the read model from the whole log.
func (s *Service) State(ctx context.Context) (projection.Snapshot, error) {
	events, err := s.log.AllEvents(ctx)
	if err != nil {
		return projection.Snapshot{}, err
	}
	metrics.AddReplayedEvents(len(events))
	return projection.Run(events), nil
}

// Integrity verifies the whole log.
func (s *Service) Integrity(ctx context.Context) (integrity.Report, error) {
	events, err := s.log.AllEvents(ctx)
	if err != nil {
		return integrity.Report{}, err
	}
	report := integrity.Verify(events)
	metrics.IncIntegrityCheck(string(report.Verdict))
	if report.Finding != nil {
		s.logger.Error("event log integrity compromised",
			"index", report.Finding.Index,
			"event_id", report.Finding.EventID,
			"reason", report.Finding.Reason,
		)
	}
	return report, nil
}

// Replay folds the log twice and reports whether both folds agree.
func (s *Service) Replay(ctx context.Context) (ReplayResult, error) {
	events, err := s.log.AllEvents(ctx)
	if err != nil {
		return ReplayResult{}, err
	}
	first := projection.Run(events)
	second := projection.Run(events)
	metrics.AddReplayedEvents(2 * len(events))

	return ReplayResult{
		State:         first,
		EventCount:    len(events),
		Deterministic: reflect.DeepEqual(first, second),
	}, nil
}

// ExportEvidence looks up an evidence pack by its audit hash.
func (s *Service) ExportEvidence(ctx context.Context, hash string) (EvidenceExport, error) {
	events, err := s.log.AllEvents(ctx)
	if err != nil {
		return EvidenceExport{}, err
	}
	pack, ok := projection.Run(events).EvidencePackByHash(hash)
	if !ok {
		return EvidenceExport{}, fmt.Errorf("evidence pack %q: %w", hash, ErrNotFound)
	}
	return EvidenceExport{
		ID:          pack.ID,
		PortfolioID: pack.PortfolioID,
		Timestamp:   pack.GeneratedAt,
		Status:      EvidenceStatusImmutable,
		EventID:     pack.SourceEventID,
		VersionHash: pack.SourceHash,
		UserID:      pack.SourceUser,
		Watermark:   pack.Watermark,
	}, nil
}
