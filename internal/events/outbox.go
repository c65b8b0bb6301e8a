package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/wolfman30/muvance-crm/pkg/logging"
)

// Pending is an outbox row that has not reached the broker yet. Event is
// zero and DecodeErr set when the stored payload is unreadable.
type Pending struct {
	ID        uuid.UUID
	Event     LeadEvent
	DecodeErr error
	QueuedAt  time.Time
}

type outboxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OutboxStore queues lead events in Postgres so a broker outage never loses
// one. *pgxpool.Pool satisfies db.
type OutboxStore struct {
	db outboxDB
}

func NewOutboxStore(db outboxDB) *OutboxStore {
	if db == nil {
		panic("events: outbox db required")
	}
	return &OutboxStore{db: db}
}

// Publish queues evt. A Relay moves it to the broker later.
func (s *OutboxStore) Publish(ctx context.Context, evt LeadEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", evt.Type, err)
	}
	if _, err := s.db.Exec(ctx,
		`INSERT INTO outbox (id, type, payload) VALUES ($1, $2, $3)`,
		uuid.New(), evt.Type, payload,
	); err != nil {
		return fmt.Errorf("events: queue %s for lead %s: %w", evt.Type, evt.LeadID, err)
	}
	return nil
}

// Pending returns up to limit undelivered events, oldest first.
func (s *OutboxStore) Pending(ctx context.Context, limit int32) ([]Pending, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, payload, created_at
		FROM outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("events: list pending: %w", err)
	}
	defer rows.Close()

	var out []Pending
	for rows.Next() {
		var (
			p       Pending
			payload []byte
		)
		if err := rows.Scan(&p.ID, &payload, &p.QueuedAt); err != nil {
			return nil, fmt.Errorf("events: scan pending: %w", err)
		}
		if err := json.Unmarshal(payload, &p.Event); err != nil {
			p.Event = LeadEvent{}
			p.DecodeErr = err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Ack marks one event delivered. It reports false when another relay got
// there first.
func (s *OutboxStore) Ack(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE outbox SET delivered_at = now() WHERE id = $1 AND delivered_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("events: ack %s: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RelayOptions tunes a Relay. Zero values take the defaults.
type RelayOptions struct {
	BatchSize int32
	Interval  time.Duration
	Logger    *logging.Logger
}

// Relay drains the outbox into a broker publisher.
type Relay struct {
	store    *OutboxStore
	broker   Publisher
	logger   *logging.Logger
	batch    int32
	interval time.Duration
}

func NewRelay(store *OutboxStore, broker Publisher, opts RelayOptions) *Relay {
	if store == nil || broker == nil {
		panic("events: relay needs a store and a broker")
	}
	r := &Relay{
		store:    store,
		broker:   broker,
		logger:   opts.Logger,
		batch:    opts.BatchSize,
		interval: opts.Interval,
	}
	if r.logger == nil {
		r.logger = logging.Default()
	}
	if r.batch <= 0 {
		r.batch = 25
	}
	if r.interval <= 0 {
		r.interval = 2 * time.Second
	}
	return r
}

// Run flushes every interval until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Flush forwards one batch and returns how many events were acked.
// Unreadable rows are acked without publishing so they cannot block the
// queue; broker failures stay pending for the next flush.
func (r *Relay) Flush(ctx context.Context) int {
	batch, err := r.store.Pending(ctx, r.batch)
	if err != nil {
		r.logger.Error("outbox read failed", "error", err)
		return 0
	}
	acked := 0
	for _, p := range batch {
		if p.DecodeErr != nil {
			r.logger.Error("dropping unreadable outbox row", "event_id", p.ID, "error", p.DecodeErr)
		} else if err := r.broker.Publish(ctx, p.Event); err != nil {
			r.logger.Warn("broker publish failed, will retry", "event_id", p.ID, "lead_id", p.Event.LeadID, "error", err)
			continue
		}
		ok, err := r.store.Ack(ctx, p.ID)
		if err != nil {
			r.logger.Error("outbox ack failed", "event_id", p.ID, "error", err)
			continue
		}
		if ok && p.DecodeErr == nil {
			acked++
		}
	}
	return acked
}
