package filestore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
	"github.com/veryx/veryx/internal/ir"
	"github.com/veryx/veryx/internal/testutil"
)

func openTestStore(t *testing.T, path string, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(testutil.NewDeterministicClock())}, opts...)
	s, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestParseCorruptPolicy(t *testing.T) {
	p, err := ParseCorruptPolicy("")
	require.NoError(t, err)
	assert.Equal(t, CorruptFail, p)

	p, err = ParseCorruptPolicy(" EMPTY ")
	require.NoError(t, err)
	assert.Equal(t, CorruptEmpty, p)

	_, err = ParseCorruptPolicy("ignore")
	require.Error(t, err)
}

func TestOpen_MissingFileIsEmptyLog(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "events.jsonl"))

	events, err := s.AllEvents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestAppend_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ctx := context.Background()

	s, err := Open(path, WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	first, err := s.Append(ctx, "pf-1", event.PortfolioCreated{Name: "Grid", Budget: ir.DecimalOf(1000), Score: 7}, "alice")
	require.NoError(t, err)
	second, err := s.Append(ctx, "pf-1", event.StageGateApproved{}, "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened := openTestStore(t, path)
	events, err := reopened.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, first, events[0])
	assert.Equal(t, second, events[1])

	third, err := reopened.Append(ctx, "pf-1", event.ExpenseLogged{Amount: ir.DecimalOf(5)}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.Version)
	assert.Equal(t, second.Meta.ChainHash, third.Meta.PrevHash)
	assert.False(t, third.Meta.Timestamp.Before(second.Meta.Timestamp))
}

func TestAppend_OneLinePerEvent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s := openTestStore(t, path)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.Append(ctx, "res-1", event.TimesheetLogged{Hours: ir.DecimalOf(8)}, "")
		require.NoError(t, err)
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"eventType":"TIMESHEET_LOGGED"`)
}

func TestAppend_ConcurrentSameStream(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "events.jsonl"))
	ctx := context.Background()

	const writers = 25
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Append(ctx, "res-1", event.TimesheetLogged{Hours: ir.DecimalOf(1)}, "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	events, err := s.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, writers)
	for i, e := range events {
		assert.Equal(t, int64(i+1), e.Version)
	}
}

func TestAppend_AfterClose(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "events.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.Append(context.Background(), "pf-1", event.StageGateApproved{}, "")
	assert.True(t, eventlog.IsStorageUnavailable(err))
}

// faultyFile fails the append handle in controlled ways. writeLimit >= 0
// makes Write persist that many bytes and then fail.
type faultyFile struct {
	logFile
	writeLimit   int
	failSync     bool
	failTruncate bool
}

var errDiskFull = errors.New("no space left on device")

func (f *faultyFile) Write(p []byte) (int, error) {
	if f.writeLimit >= 0 && len(p) > f.writeLimit {
		n, _ := f.logFile.Write(p[:f.writeLimit])
		return n, errDiskFull
	}
	return f.logFile.Write(p)
}

func (f *faultyFile) Sync() error {
	if f.failSync {
		return errDiskFull
	}
	return f.logFile.Sync()
}

func (f *faultyFile) Truncate(size int64) error {
	if f.failTruncate {
		return errDiskFull
	}
	return f.logFile.Truncate(size)
}

func TestAppend_FailedWriteIsRolledBack(t *testing.T) {
	tests := []struct {
		name  string
		fault faultyFile
	}{
		{"partial write", faultyFile{writeLimit: 17}},
		{"failed fsync", faultyFile{writeLimit: -1, failSync: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "events.jsonl")
			ctx := context.Background()
			s := openTestStore(t, path)

			_, err := s.Append(ctx, "pf-1", event.PortfolioCreated{Name: "Grid", Budget: ir.DecimalOf(1000)}, "")
			require.NoError(t, err)
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			healthy := s.f
			fault := tt.fault
			fault.logFile = healthy
			s.f = &fault

			_, err = s.Append(ctx, "pf-1", event.StageGateApproved{}, "")
			require.Error(t, err)
			assert.True(t, eventlog.IsStorageUnavailable(err))
			assert.ErrorIs(t, err, errDiskFull)

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, before, after, "failed append leaves no bytes behind")

			s.f = healthy
			e, err := s.Append(ctx, "pf-1", event.StageGateApproved{}, "")
			require.NoError(t, err)
			assert.Equal(t, int64(2), e.Version)

			reopened := openTestStore(t, path)
			events, err := reopened.AllEvents(ctx)
			require.NoError(t, err)
			require.Len(t, events, 2)
			assert.Equal(t, []int64{1, 2}, []int64{events[0].Version, events[1].Version})
		})
	}
}

func TestAppend_UnrecoverableWriteRefusesFurtherAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ctx := context.Background()
	s := openTestStore(t, path)

	_, err := s.Append(ctx, "pf-1", event.PortfolioCreated{Name: "Grid"}, "")
	require.NoError(t, err)

	healthy := s.f
	s.f = &faultyFile{logFile: healthy, writeLimit: 9, failTruncate: true}

	_, err = s.Append(ctx, "pf-1", event.StageGateApproved{}, "")
	require.True(t, eventlog.IsStorageUnavailable(err))

	s.f = healthy
	_, err = s.Append(ctx, "pf-1", event.StageGateApproved{}, "")
	require.Error(t, err)
	assert.True(t, eventlog.IsStorageUnavailable(err))
	assert.Contains(t, err.Error(), "reopening")

	reopened := openTestStore(t, path)
	e, err := reopened.Append(ctx, "pf-1", event.StageGateApproved{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Version)

	events, err := reopened.AllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestPing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s, err := Open(path)
	require.NoError(t, err)

	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, os.Remove(path))
	assert.True(t, eventlog.IsStorageUnavailable(s.Ping(context.Background())))

	require.NoError(t, s.Close())
	assert.True(t, eventlog.IsStorageUnavailable(s.Ping(context.Background())))
}

func TestOpen_TornTailIsDiscarded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	ctx := context.Background()

	s, err := Open(path, WithClock(testutil.NewDeterministicClock()))
	require.NoError(t, err)
	_, err = s.Append(ctx, "pf-1", event.StageGateApproved{}, "")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"eventId":"half`)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	reopened := openTestStore(t, path)
	events, err := reopened.AllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	e, err := reopened.Append(ctx, "pf-1", event.StageGateApproved{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), e.Version)

	events, err = reopened.AllEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestOpen_CorruptFailPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("this is not json\n"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, eventlog.IsCorruptLog(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "this is not json\n", string(data), "file must be left untouched")
}

func TestOpen_CorruptEmptyPolicy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("this is not json\n"), 0o644))

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	s := openTestStore(t, path, WithCorruptPolicy(CorruptEmpty), WithLogger(logger))

	events, err := s.AllEvents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.Contains(t, logs.String(), "level=ERROR")
	assert.Contains(t, logs.String(), "data loss")

	matches, err := filepath.Glob(filepath.Join(dir, "events.jsonl.corrupt-*"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	aside, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Equal(t, "this is not json\n", string(aside))

	e, err := s.Append(context.Background(), "pf-1", event.StageGateApproved{}, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), e.Version)
	assert.Empty(t, e.Meta.PrevHash)
}

func TestAllEvents_SeesTamperedPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s := openTestStore(t, path)
	ctx := context.Background()

	_, err := s.Append(ctx, "pf-1", event.ExpenseLogged{Amount: ir.DecimalOf(100), Description: "steel"}, "")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	tampered := bytes.Replace(data, []byte(`"amount":100`), []byte(`"amount":1`), 1)
	require.NotEqual(t, data, tampered)
	require.NoError(t, os.WriteFile(path, tampered, 0o644))

	events, err := s.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)

	recomputed, err := event.ComputeAuditHash(events[0])
	require.NoError(t, err)
	assert.NotEqual(t, events[0].Meta.AuditHash, recomputed)
}
