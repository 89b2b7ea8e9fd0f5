package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veryx/veryx/internal/event"
	"github.com/veryx/veryx/internal/eventlog"
	"github.com/veryx/veryx/internal/ir"
)

func TestAllEvents_EmptyLog(t *testing.T) {
	s := createTestStore(t)

	events, err := s.AllEvents(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestAllEvents_StorageOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	streams := []string{"pf-b", "pf-a", "pf-b", "pf-c"}
	for _, stream := range streams {
		_, err := s.Append(ctx, stream, event.StageGateApproved{}, "")
		require.NoError(t, err)
	}

	events, err := s.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, len(streams))
	for i, stream := range streams {
		assert.Equal(t, stream, events[i].StreamID)
	}
	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Meta.Timestamp.Before(events[i-1].Meta.Timestamp))
		assert.Equal(t, events[i-1].Meta.ChainHash, events[i].Meta.PrevHash)
	}
}

func TestAllEvents_UnknownTypeIsOpaque(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (event_id, stream_id, version, event_type, payload, timestamp, user_id, audit_hash)
		VALUES ('e1', 'x', 1, 'BUDGET_REFORECAST', '{"delta":5}', '2026-01-01T00:00:00.000Z', 'system', 'h')
	`)
	require.NoError(t, err)

	events, err := s.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.IsType(t, event.Opaque{}, events[0].Payload)
}

func TestAllEvents_CorruptRowFailsFast(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		timestamp string
	}{
		{"payload is not json", "{not json", "2026-01-01T00:00:00.000Z"},
		{"payload has a float", `{"hours":1.5}`, "2026-01-01T00:00:00.000Z"},
		{"bad timestamp", `{"hours":1}`, "yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := createTestStore(t)
			ctx := context.Background()

			_, err := s.db.ExecContext(ctx, `
				INSERT INTO events (event_id, stream_id, version, event_type, payload, timestamp, user_id, audit_hash)
				VALUES ('e1', 'res-1', 1, 'TIMESHEET_LOGGED', ?, ?, 'system', 'h')
			`, tt.payload, tt.timestamp)
			require.NoError(t, err)

			_, err = s.AllEvents(ctx)
			require.Error(t, err)
			assert.True(t, eventlog.IsCorruptLog(err), "got %v", err)
		})
	}
}

func TestAllEvents_ReturnsTamperedPayloadAsStored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Append(ctx, "pf-1", event.ExpenseLogged{Amount: ir.DecimalOf(100), Description: "steel"}, "")
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx, `UPDATE events SET payload = '{"amount":1,"description":"steel"}'`)
	require.NoError(t, err)

	events, err := s.AllEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.ExpenseLogged{Amount: ir.DecimalOf(1), Description: "steel"}, events[0].Payload)

	recomputed, err := event.ComputeAuditHash(events[0])
	require.NoError(t, err)
	assert.NotEqual(t, events[0].Meta.AuditHash, recomputed)
}
