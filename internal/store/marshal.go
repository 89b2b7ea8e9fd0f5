package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
)

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEvent decodes one events row. Payload text is parsed back into the
// typed payload for its event type, keeping the raw object for hashing.
func scanEvent(row rowScanner) (event.Event, error) {
	var (
		seq         int64
		e           event.Event
		eventType   string
		payloadText string
		ts          string
	)
	err := row.Scan(
		&seq,
		&e.ID,
		&e.StreamID,
		&e.Version,
		&eventType,
		&payloadText,
		&ts,
		&e.Meta.User,
		&e.Meta.AuditHash,
		&e.Meta.PrevHash,
		&e.Meta.ChainHash,
	)
	if err != nil {
		return event.Event{}, eventlog.Corrupt(fmt.Sprintf("scan event at seq %d", seq), err)
	}

	e.Type = event.Type(eventType)

	e.Meta.Timestamp, err = event.ParseTimestamp(ts)
	if err != nil {
		return event.Event{}, eventlog.Corrupt(fmt.Sprintf("event %s at seq %d", e.ID, seq), err)
	}

	e.Payload, e.Raw, err = event.UnmarshalPayload(e.Type, payloadText)
	if err != nil {
		return event.Event{}, eventlog.Corrupt(fmt.Sprintf("event %s at seq %d", e.ID, seq), err)
	}

	return e, nil
}

// errDBClosed is the text of database/sql's unexported closed-pool error.
const errDBClosed = "sql: database is closed"

// classify maps driver errors onto the eventlog taxonomy.
func classify(op, streamID string, version int64, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch {
		case sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique,
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return eventlog.Conflict(streamID, version, err)
		case sqliteErr.Code == sqlite3.ErrBusy,
			sqliteErr.Code == sqlite3.ErrLocked,
			sqliteErr.Code == sqlite3.ErrCantOpen,
			sqliteErr.Code == sqlite3.ErrIoErr,
			sqliteErr.Code == sqlite3.ErrFull:
			return eventlog.Unavailable(op, err)
		case sqliteErr.Code == sqlite3.ErrCorrupt,
			sqliteErr.Code == sqlite3.ErrNotADB:
			return eventlog.Corrupt(op, err)
		}
	}
	if errors.Is(err, sql.ErrConnDone) || strings.Contains(err.Error(), errDBClosed) {
		return eventlog.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
