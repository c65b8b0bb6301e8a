package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRows(t *testing.T, rows ...any) *pgxmock.Rows {
	t.Helper()
	r := pgxmock.NewRows([]string{"id", "payload", "created_at"})
	for i := 0; i < len(rows); i += 2 {
		var payload []byte
		switch v := rows[i+1].(type) {
		case []byte:
			payload = v
		default:
			b, err := json.Marshal(v)
			require.NoError(t, err)
			payload = b
		}
		r.AddRow(rows[i], payload, time.Now().UTC())
	}
	return r
}

func TestOutboxStoreQueueAndAck(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	store := NewOutboxStore(mock)
	ctx := context.Background()

	evt := LeadEvent{Type: TypeLeadCreated, LeadID: "a1", FullName: "Ada"}
	mock.ExpectExec("INSERT INTO outbox").
		WithArgs(pgxmock.AnyArg(), TypeLeadCreated, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, store.Publish(ctx, evt))

	id := uuid.New()
	mock.ExpectQuery("FROM outbox").WithArgs(int32(10)).WillReturnRows(pendingRows(t, id, evt))
	pending, err := store.Pending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, id, pending[0].ID)
	assert.Equal(t, "a1", pending[0].Event.LeadID)
	assert.NoError(t, pending[0].DecodeErr)

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	ok, err := store.Ack(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	mock.ExpectExec("UPDATE outbox").WithArgs(id).WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	ok, err = store.Ack(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelayFlushKeepsBrokerFailuresPending(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	okID, badID, junkID := uuid.New(), uuid.New(), uuid.New()
	mock.ExpectQuery("FROM outbox").WithArgs(int32(25)).WillReturnRows(pendingRows(t,
		okID, LeadEvent{Type: TypeLeadUpdated, LeadID: "ok"},
		badID, LeadEvent{Type: TypeLeadUpdated, LeadID: "bad"},
		junkID, []byte("{not json"),
	))
	mock.ExpectExec("UPDATE outbox").WithArgs(okID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE outbox").WithArgs(junkID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	var seen []string
	broker := PublisherFunc(func(ctx context.Context, evt LeadEvent) error {
		seen = append(seen, evt.LeadID)
		if evt.LeadID == "bad" {
			return errors.New("broker down")
		}
		return nil
	})

	relay := NewRelay(NewOutboxStore(mock), broker, RelayOptions{})
	assert.Equal(t, 1, relay.Flush(context.Background()))
	assert.Equal(t, []string{"ok", "bad"}, seen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRelayRunStopsWithContext(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	relay := NewRelay(NewOutboxStore(mock), Nop{}, RelayOptions{Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		relay.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("relay did not stop")
	}
}
