package harness

import (
	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/integrity"
	"github.com/veryx/veryx/internal/ir"
	"github.com/veryx/veryx/internal/projection"
)

// TraceEvent is one appended event as seen by assertions and golden files.
// Hashes are left out: they are covered by the integrity verdict.
type TraceEvent struct {
	Seq       int         `json:"seq"`
	EventID   string      `json:"eventId"`
	StreamID  string      `json:"streamId"`
	Version   int64       `json:"version"`
	EventType string      `json:"eventType"`
	Payload   ir.IRObject `json:"payload"`
	User      string      `json:"user"`
	Timestamp string      `json:"timestamp"`
}

func newTraceEvent(seq int, e event.Event) TraceEvent {
	return TraceEvent{
		Seq:       seq,
		EventID:   e.ID,
		StreamID:  e.StreamID,
		Version:   e.Version,
		EventType: string(e.Type),
		Payload:   e.PayloadObject(),
		User:      e.Meta.User,
		Timestamp: event.FormatTimestamp(e.Meta.Timestamp),
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step behaved as scripted and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace is the full event log in storage order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes every failed step or assertion.
	Errors []string `json:"errors,omitempty"`

	// State is the projection of the final log.
	State projection.Snapshot `json:"state"`

	// Integrity is the verdict over the final log.
	Integrity integrity.Report `json:"integrity"`

	// Bindings holds the outcome of every step bound with "as".
	Bindings Bindings `json:"bindings,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
		Bindings: make(Bindings),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
