package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
)

// Store is an append-only JSONL event log: one wire-shape event per line.
type Store struct {
	path   string
	policy CorruptPolicy
	clock  eventlog.Clock
	newID  eventlog.IDGenerator
	logger *slog.Logger

	mu       sync.RWMutex
	f        logFile
	versions map[string]int64
	tail     eventlog.Head

	// broken is set when a failed append could not be rolled back. The file
	// may end in a partial record, so further appends are refused until the
	// log is reopened and the torn tail cut off.
	broken error
}

// logFile is the append handle. *os.File satisfies it.
type logFile interface {
	io.Writer
	Sync() error
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Close() error
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

func WithCorruptPolicy(p CorruptPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// Open opens or creates the log at path.
//
// An incomplete final line is an append that never finished its fsync; it is
// cut off with a warning. Any other undecodable content is handled by the
// corrupt policy.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:     path,
		policy:   CorruptFail,
		clock:    eventlog.SystemClock{},
		newID:    eventlog.NewEventID,
		logger:   slog.Default(),
		versions: make(map[string]int64),
	}
	for _, opt := range opts {
		opt(s)
	}

	events, complete, err := readLog(path)
	switch {
	case eventlog.IsCorruptLog(err):
		if s.policy != CorruptEmpty {
			return nil, err
		}
		if err := s.quarantine(err); err != nil {
			return nil, err
		}
		events, complete = nil, 0
	case err != nil:
		return nil, err
	}

	if err := s.truncateTornTail(complete); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, eventlog.Unavailable("open log for append", err)
	}
	s.f = f

	for _, e := range events {
		s.observe(e)
	}
	return s, nil
}

// quarantine renames the corrupt file aside so the data is kept for
// inspection and a fresh log can start.
func (s *Store) quarantine(cause error) error {
	aside := fmt.Sprintf("%s.corrupt-%d", s.path, s.clock.Now().UnixMilli())
	if err := os.Rename(s.path, aside); err != nil {
		return eventlog.Unavailable("move corrupt log aside", err)
	}
	s.logger.Error("event log corrupt, starting empty: data loss",
		"path", s.path,
		"moved_to", aside,
		"error", cause,
	)
	return nil
}

func (s *Store) truncateTornTail(complete int64) error {
	info, err := os.Stat(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return eventlog.Unavailable("stat log", err)
	}
	if info.Size() == complete {
		return nil
	}

	s.logger.Warn("discarding incomplete final record",
		"path", s.path,
		"bytes", info.Size()-complete,
	)
	if err := os.Truncate(s.path, complete); err != nil {
		return eventlog.Unavailable("truncate torn record", err)
	}
	return nil
}

func (s *Store) observe(e event.Event) {
	s.versions[e.StreamID] = e.Version
	s.tail.ChainHash = e.Meta.ChainHash
	s.tail.Timestamp = e.Meta.Timestamp
}

// Close closes the append handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// Ping reports whether the log file is still reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.f == nil {
		return eventlog.Unavailable("ping", os.ErrClosed)
	}
	if _, err := os.Stat(s.path); err != nil {
		return eventlog.Unavailable("ping", err)
	}
	return nil
}

// Append writes payload as the next version of streamID and fsyncs the line
// before returning. A failed write or fsync is rolled back by truncating the
// file to its size before the append, so a retry cannot duplicate a version.
// If the rollback fails too, the store refuses further appends.
func (s *Store) Append(ctx context.Context, streamID string, payload event.Payload, user string) (event.Event, error) {
	if err := eventlog.ValidateAppend(streamID, payload); err != nil {
		return event.Event{}, err
	}
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		return event.Event{}, eventlog.Unavailable("append", os.ErrClosed)
	}
	if s.broken != nil {
		return event.Event{}, eventlog.Unavailable("append: log needs reopening", s.broken)
	}

	head := s.tail
	head.StreamVersion = s.versions[streamID]

	e, err := eventlog.Stamp(s.newID(), streamID, payload, user, head, s.clock.Now())
	if err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return event.Event{}, fmt.Errorf("append: %w", err)
	}
	line = append(line, '\n')

	info, err := s.f.Stat()
	if err != nil {
		return event.Event{}, eventlog.Unavailable("append: stat", err)
	}
	size := info.Size()

	if _, err := s.f.Write(line); err != nil {
		return event.Event{}, s.rollback(size, "append: write", err)
	}
	if err := s.f.Sync(); err != nil {
		return event.Event{}, s.rollback(size, "append: sync", err)
	}

	s.observe(e)
	return e, nil
}

// rollback cuts the file back to size after a failed append. The caller
// holds s.mu.
func (s *Store) rollback(size int64, op string, cause error) error {
	if err := s.f.Truncate(size); err != nil {
		s.broken = fmt.Errorf("%s: %w; rollback: %w", op, cause, err)
		s.logger.Error("append rollback failed, refusing further appends",
			"path", s.path,
			"size", size,
			"error", s.broken,
		)
		return eventlog.Unavailable(op, s.broken)
	}
	s.logger.Warn("append failed, rolled back", "path", s.path, "error", cause)
	return eventlog.Unavailable(op, cause)
}

// AllEvents re-reads the file and returns every complete record in order.
func (s *Store) AllEvents(ctx context.Context) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events, _, err := readLog(s.path)
	if err != nil {
		return nil, err
	}
	return events, nil
}

// readLog decodes every complete line of path and returns the byte length
// of the complete prefix. A missing file is an empty log.
func readLog(path string) ([]event.Event, int64, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return []event.Event{}, 0, nil
	}
	if err != nil {
		return nil, 0, eventlog.Unavailable("open log", err)
	}
	defer f.Close()

	events := []event.Event{}
	var complete int64
	r := bufio.NewReader(f)
	for lineNo := 1; ; lineNo++ {
		line, err := r.ReadBytes('\n')
		if errors.Is(err, io.EOF) {
			// A final line without its newline was never acknowledged.
			return events, complete, nil
		}
		if err != nil {
			return nil, 0, eventlog.Unavailable("read log", err)
		}
		complete += int64(len(line))

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var e event.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, 0, eventlog.Corrupt(fmt.Sprintf("%s line %d", path, lineNo), err)
		}
		events = append(events, e)
	}
}
