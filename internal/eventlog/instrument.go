package eventlog

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/metrics"
)

const tracerName = "github.com/veryx/veryx/internal/eventlog"

type instrumentedLog struct {
	next   Log
	logger *slog.Logger
	tracer trace.Tracer
}

// Instrument wraps next with structured logging, Prometheus metrics and
// OpenTelemetry spans. A nil logger means slog.Default().
func Instrument(next Log, logger *slog.Logger) Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumentedLog{
		next:   next,
		logger: logger,
		tracer: otel.Tracer(tracerName),
	}
}

func (l *instrumentedLog) Append(ctx context.Context, streamID string, payload event.Payload, user string) (event.Event, error) {
	eventType := "unknown"
	if payload != nil {
		eventType = string(payload.EventType())
	}

	ctx, span := l.tracer.Start(ctx, "eventlog.Append", trace.WithAttributes(
		attribute.String("veryx.stream_id", streamID),
		attribute.String("veryx.event_type", eventType),
	))
	defer span.End()

	start := time.Now()
	e, err := l.next.Append(ctx, streamID, payload, user)
	metrics.ObserveAppendDuration(time.Since(start))

	if err != nil {
		metrics.IncAppend(eventType, outcome(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.ErrorContext(ctx, "append failed",
			"stream_id", streamID,
			"event_type", eventType,
			"code", string(CodeOf(err)),
			"error", err,
		)
		return e, err
	}

	metrics.IncAppend(eventType, "ok")
	span.SetAttributes(attribute.Int64("veryx.version", e.Version))
	l.logger.DebugContext(ctx, "event appended",
		"event_id", e.ID,
		"stream_id", e.StreamID,
		"version", e.Version,
		"event_type", string(e.Type),
		"user", e.Meta.User,
	)
	return e, nil
}

func (l *instrumentedLog) AllEvents(ctx context.Context) ([]event.Event, error) {
	ctx, span := l.tracer.Start(ctx, "eventlog.AllEvents")
	defer span.End()

	events, err := l.next.AllEvents(ctx)
	if err != nil {
		metrics.IncRead(outcome(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.logger.ErrorContext(ctx, "read event log failed",
			"code", string(CodeOf(err)),
			"error", err,
		)
		return nil, err
	}

	metrics.IncRead("ok")
	span.SetAttributes(attribute.Int("veryx.event_count", len(events)))
	return events, nil
}

func (l *instrumentedLog) Close() error {
	return l.next.Close()
}

func outcome(err error) string {
	if code := CodeOf(err); code != "" {
		return string(code)
	}
	return "error"
}
