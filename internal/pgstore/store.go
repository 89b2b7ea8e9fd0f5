package pgstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
)

// appendLockID serializes appends across every writer of the database so
// that the chain and timestamp order follow seq order.
const appendLockID int64 = 0x5645525958415050 // "VERYXAPP"

// Store is the PostgreSQL event log.
type Store struct {
	pool   *pgxpool.Pool
	clock  eventlog.Clock
	newID  eventlog.IDGenerator
	logger *slog.Logger
}

var _ eventlog.Log = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

func WithClock(c eventlog.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithIDGenerator(g eventlog.IDGenerator) Option {
	return func(s *Store) { s.newID = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open connects to databaseURL and ensures the schema exists.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	pool, err := NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	s := New(pool, opts...)
	if err := EnsureSchema(ctx, pool, s.logger); err != nil {
		pool.Close()
		return nil, classify("ensure schema", "", 0, err)
	}
	return s, nil
}

// New wraps an existing pool. The caller is responsible for the schema.
func New(pool *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		clock:  eventlog.SystemClock{},
		newID:  eventlog.NewEventID,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return eventlog.Unavailable("ping", err)
	}
	return nil
}

// Append stores payload as the next version of streamID.
func (s *Store) Append(ctx context.Context, streamID string, payload event.Payload, user string) (event.Event, error) {
	if err := eventlog.ValidateAppend(streamID, payload); err != nil {
		return event.Event{}, err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return event.Event{}, classify("append: begin tx", streamID, 0, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, appendLockID); err != nil {
		return event.Event{}, classify("append: lock", streamID, 0, err)
	}

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

	_, err = tx.Exec(ctx, `
		INSERT INTO events
		(event_id, stream_id, version, event_type, payload, timestamp, user_id, audit_hash, prev_hash, chain_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
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

	if err := tx.Commit(ctx); err != nil {
		return event.Event{}, classify("append: commit", streamID, e.Version, err)
	}

	return e, nil
}

func readHead(ctx context.Context, tx pgx.Tx, streamID string) (eventlog.Head, error) {
	var head eventlog.Head

	err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id = $1`,
		streamID,
	).Scan(&head.StreamVersion)
	if err != nil {
		return head, classify("append: read stream version", streamID, 0, err)
	}

	var ts string
	err = tx.QueryRow(ctx,
		`SELECT chain_hash, timestamp FROM events ORDER BY seq DESC LIMIT 1`,
	).Scan(&head.ChainHash, &ts)
	if errors.Is(err, pgx.ErrNoRows) {
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

// AllEvents returns every stored event ordered by seq.
func (s *Store) AllEvents(ctx context.Context) ([]event.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, event_id, stream_id, version, event_type, payload, timestamp, user_id, audit_hash, prev_hash, chain_hash
		FROM events
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, classify("query events", "", 0, err)
	}
	defer rows.Close()

	events := make([]event.Event, 0, 64)
	for rows.Next() {
		var (
			seq         int64
			e           event.Event
			eventType   string
			payloadText string
			ts          string
		)
		if err := rows.Scan(
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
		); err != nil {
			s.logger.Error("scan event row failed", "seq", seq, "error", err)
			return nil, eventlog.Corrupt(fmt.Sprintf("scan event at seq %d", seq), err)
		}

		e.Type = event.Type(eventType)
		if e.Meta.Timestamp, err = event.ParseTimestamp(ts); err != nil {
			return nil, eventlog.Corrupt(fmt.Sprintf("event %s at seq %d", e.ID, seq), err)
		}
		if e.Payload, e.Raw, err = event.UnmarshalPayload(e.Type, payloadText); err != nil {
			return nil, eventlog.Corrupt(fmt.Sprintf("event %s at seq %d", e.ID, seq), err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, classify("iterate events", "", 0, err)
	}
	return events, nil
}

// classify maps pgx errors onto the eventlog taxonomy.
func classify(op, streamID string, version int64, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return eventlog.Conflict(streamID, version, err)
		case "40001", "40P01", "55P03", "57P01", "57P02", "57P03", "53300":
			return eventlog.Unavailable(op, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return eventlog.Unavailable(op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return eventlog.Unavailable(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
