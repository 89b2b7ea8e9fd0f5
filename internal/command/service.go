package command

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
	"github.com/veryx/veryx/internal/metrics"
)

// ACULedgerStream is the stream every ACU deduction is appended to.
const ACULedgerStream = "ACU_LEDGER"

// Service executes commands and queries against one event log.
type Service struct {
	log         eventlog.Log
	newStreamID func() string
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStreamIDGenerator replaces the UUID generator used for new streams.
func WithStreamIDGenerator(g func() string) Option {
	return func(s *Service) { s.newStreamID = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New returns a Service over log.
func New(log eventlog.Log, opts ...Option) *Service {
	s := &Service{
		log:         log,
		newStreamID: uuid.NewString,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log returns the underlying event log.
func (s *Service) Log() eventlog.Log {
	return s.log
}

// append stores one payload and records the command outcome.
func (s *Service) append(ctx context.Context, name, streamID string, p event.Payload, user string) (event.Event, error) {
	e, err := s.log.Append(ctx, streamID, p, user)
	s.record(name, err)
	if err != nil {
		return event.Event{}, err
	}
	return e, nil
}

func (s *Service) record(name string, err error) {
	outcome := "ok"
	switch {
	case IsPrecondition(err):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
		s.logger.Debug("command failed", "command", name, "error", err)
	}
	metrics.IncCommand(name, outcome)
}
