package eventlog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veryx/veryx/internal/event"
)

// Log is the append-only event log shared by every backend.
type Log interface {
	// Append stores payload as the next version of streamID and returns the
	// sealed record. user defaults to event.DefaultUser.
	Append(ctx context.Context, streamID string, payload event.Payload, user string) (event.Event, error)
	// AllEvents returns every record in storage order.
	AllEvents(ctx context.Context) ([]event.Event, error)
	Close() error
}

// Clock supplies append timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Head is what a backend knows about the log tail when it stamps a new record.
type Head struct {
	// StreamVersion is the highest stored version of the target stream (0 if none).
	StreamVersion int64
	// ChainHash is the chain hash of the last stored record of the whole log.
	ChainHash string
	// Timestamp is the timestamp of the last stored record of the whole log.
	Timestamp time.Time
}

// IDGenerator produces event ids.
type IDGenerator func() string

// NewEventID returns a random UUID v4. It is the default IDGenerator.
func NewEventID() string {
	return uuid.NewString()
}

// Stamp builds and seals the record that an append of payload to streamID
// would store after head. The timestamp never goes behind head.Timestamp.
func Stamp(id, streamID string, payload event.Payload, user string, head Head, now time.Time) (event.Event, error) {
	if err := ValidateAppend(streamID, payload); err != nil {
		return event.Event{}, err
	}

	ts := event.NormalizeTimestamp(now)
	if ts.Before(head.Timestamp) {
		ts = head.Timestamp
	}

	e := event.Event{
		ID:       id,
		StreamID: streamID,
		Version:  head.StreamVersion + 1,
		Type:     payload.EventType(),
		Payload:  payload,
		Meta: event.Meta{
			Timestamp: ts,
			User:      event.UserOrDefault(user),
		},
	}
	if err := event.Seal(&e, head.ChainHash); err != nil {
		return event.Event{}, err
	}
	return e, nil
}

// ValidateAppend rejects appends that must never reach a backend.
func ValidateAppend(streamID string, payload event.Payload) error {
	if payload == nil {
		return &event.ValidationError{Field: "payload", Reason: "is required"}
	}
	if streamID == "" {
		return &event.ValidationError{Type: payload.EventType(), Field: "streamId", Reason: "is required"}
	}
	return payload.Validate()
}
