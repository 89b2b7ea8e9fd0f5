package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
)

// Append stores payload as the next version of streamID.
//
// Version, timestamp and chain hash are derived inside the append
// transaction. A concurrent writer that claimed the same version makes the
// insert fail on UNIQUE(stream_id, version), reported as eventlog.ErrConflict.
func (s *Store) Append(ctx context.Context, streamID string, payload event.Payload, user string) (event.Event, error) {
	if err := eventlog.ValidateAppend(streamID, payload); err != nil {
		return event.Event{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return event.Event{}, classify("append: begin tx", streamID, 0, err)
	}
	defer tx.Rollback() // No-op if committed

	head, err := readHead(ctx, tx, streamID)
	if err != nil {
		return event.Event{}, err
	}

	e, err := eventlog.Stamp(s.newID(), streamID, payload, user, head, s.clock.Now())
	if err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}

	payloadText, err := event.MarshalPayload(e.PayloadObject())
	if err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events
		(event_id, stream_id, version, event_type, payload, timestamp, user_id, audit_hash, prev_hash, chain_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.StreamID,
		e.Version,
		string(e.Type),
		payloadText,
		event.FormatTimestamp(e.Meta.Timestamp),
		e.Meta.User,
		e.Meta.AuditHash,
		e.Meta.PrevHash,
		e.Meta.ChainHash,
	)
	if err != nil {
		return event.Event{}, classify("append: insert", streamID, e.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return event.Event{}, classify("append: commit", streamID, e.Version, err)
	}

	return e, nil
}

// readHead reads the stream's last version and the log tail inside tx.
func readHead(ctx context.Context, tx *sql.Tx, streamID string) (eventlog.Head, error) {
	var head eventlog.Head

	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = ?`,
		streamID,
	).Scan(&head.StreamVersion)
	if err != nil {
		return head, classify("append: read stream version", streamID, 0, err)
	}

	var ts string
	err = tx.QueryRowContext(ctx,
		`SELECT chain_hash, timestamp FROM events ORDER BY seq DESC LIMIT 1`,
	).Scan(&head.ChainHash, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return head, nil
	}
	if err != nil {
		return head, classify("append: read log tail", streamID, 0, err)
	}

	head.Timestamp, err = event.ParseTimestamp(ts)
	if err != nil {
		return head, eventlog.Corrupt("append: log tail timestamp", err)
	}
	return head, nil
}
