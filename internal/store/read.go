package store

import (
	"context"

	"github.com/veryx/veryx/internal/event"
)

// AllEvents returns every stored event ordered by seq.
// Returns an empty slice (not nil) for an empty log. A row that cannot be
// decoded fails the whole read with eventlog.ErrCorruptLog.
func (s *Store) AllEvents(ctx context.Context) ([]event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, event_id, stream_id, version, event_type, payload, timestamp, user_id, audit_hash, prev_hash, chain_hash
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, classify("query events", "", 0, err)
	}
	defer rows.Close()

	events := []event.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate events", "", 0, err)
	}

	return events, nil
}
