package event

import (
	"encoding/json"
	"fmt"

	"github.com/veryx/veryx/internal/ir"
)

// wireEvent is the storage and API shape of an event.
type wireEvent struct {
	EventID   string      `json:"eventId"`
	StreamID  string      `json:"streamId"`
	Version   int64       `json:"version"`
	EventType Type        `json:"eventType"`
	Payload   ir.IRObject `json:"payload"`
	Meta      wireMeta    `json:"meta"`
}

type wireMeta struct {
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
	AuditHash string `json:"auditHash"`
	PrevHash  string `json:"prevHash,omitempty"`
	ChainHash string `json:"chainHash,omitempty"`
}

// MarshalJSON writes the event in its wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEvent{
		EventID:   e.ID,
		StreamID:  e.StreamID,
		Version:   e.Version,
		EventType: e.Type,
		Payload:   e.PayloadObject(),
		Meta: wireMeta{
			Timestamp: FormatTimestamp(e.Meta.Timestamp),
			User:      e.Meta.User,
			AuditHash: e.Meta.AuditHash,
			PrevHash:  e.Meta.PrevHash,
			ChainHash: e.Meta.ChainHash,
		},
	})
}

// UnmarshalJSON reads the wire shape, keeping the raw payload object and
// decoding the typed payload from it.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.EventType == "" {
		return fmt.Errorf("event %q: missing eventType", w.EventID)
	}

	ts, err := ParseTimestamp(w.Meta.Timestamp)
	if err != nil {
		return fmt.Errorf("event %q: %w", w.EventID, err)
	}

	if w.Payload == nil {
		w.Payload = ir.IRObject{}
	}
	p, err := DecodePayload(w.EventType, w.Payload)
	if err != nil {
		return fmt.Errorf("event %q: %w", w.EventID, err)
	}

	*e = Event{
		ID:       w.EventID,
		StreamID: w.StreamID,
		Version:  w.Version,
		Type:     w.EventType,
		Payload:  p,
		Raw:      w.Payload,
		Meta: Meta{
			Timestamp: ts,
			User:      w.Meta.User,
			AuditHash: w.Meta.AuditHash,
			PrevHash:  w.Meta.PrevHash,
			ChainHash: w.Meta.ChainHash,
		},
	}
	return nil
}

// MarshalPayload renders a payload object as canonical JSON text for
// storage. Pass Event.PayloadObject so the stored text is what was hashed.
func MarshalPayload(obj ir.IRObject) (string, error) {
	if obj == nil {
		obj = ir.IRObject{}
	}
	data, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return string(data), nil
}

// UnmarshalPayload parses stored payload text for event type t and returns
// both the typed payload and the raw object it was read from.
func UnmarshalPayload(t Type, data string) (Payload, ir.IRObject, error) {
	obj := ir.IRObject{}
	if data != "" && data != "{}" {
		if err := json.Unmarshal([]byte(data), &obj); err != nil {
			return nil, nil, fmt.Errorf("unmarshal payload: %w", err)
		}
	}
	p, err := DecodePayload(t, obj)
	if err != nil {
		return nil, nil, err
	}
	return p, obj, nil
}
