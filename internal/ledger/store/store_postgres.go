package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"mic/internal/ledger/models"
	txcontext "mic/pkg/platform/tx"
)

// PostgresStore persists events in the events table and records each one in
// event_outbox within the same transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

const eventColumns = `e.event_id, e.event_type, e.aggregate_type, e.aggregate_id, e.actor_type, e.actor_id,
	       e.correlation_id, e.payload, e.created_at`

func (s *PostgresStore) Insert(ctx context.Context, ev *models.Event) error {
	exec := s.execer(ctx)
	_, err := exec.ExecContext(ctx, `
		INSERT INTO events (event_id, event_type, aggregate_type, aggregate_id, actor_type, actor_id,
		                    correlation_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, ev.EventID, ev.EventType, ev.AggregateType, ev.AggregateID, ev.ActorType, ev.ActorID,
		sql.NullString{String: ev.CorrelationID, Valid: ev.CorrelationID != ""}, []byte(ev.Payload), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `
		INSERT INTO event_outbox (event_id, created_at) VALUES ($1, $2)
	`, ev.EventID, ev.CreatedAt); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAggregate(ctx context.Context, aggregateType, aggregateID string, after *models.Cursor, limit int) ([]*models.Event, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if after == nil {
		rows, err = s.execer(ctx).QueryContext(ctx, `
			SELECT `+eventColumns+`
			FROM events e
			WHERE e.aggregate_type = $1 AND e.aggregate_id = $2
			ORDER BY e.created_at, e.event_id
			LIMIT $3
		`, aggregateType, aggregateID, limit)
	} else {
		rows, err = s.execer(ctx).QueryContext(ctx, `
			SELECT `+eventColumns+`
			FROM events e
			WHERE e.aggregate_type = $1 AND e.aggregate_id = $2
			  AND (e.created_at, e.event_id::text) > ($3, $4)
			ORDER BY e.created_at, e.event_id
			LIMIT $5
		`, aggregateType, aggregateID, after.CreatedAt, after.EventID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return scanEvents(rows)
}

// ClaimUnpublished locks up to limit unpublished outbox rows. Rows locked by
// another relay are skipped. Must run inside a transaction.
func (s *PostgresStore) ClaimUnpublished(ctx context.Context, limit int) ([]*models.Event, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM event_outbox o
		JOIN events e ON e.event_id = o.event_id
		WHERE o.published_at IS NULL
		ORDER BY o.created_at, o.event_id
		LIMIT $1
		FOR UPDATE OF o SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("claim outbox entries: %w", err)
	}
	return scanEvents(rows)
}

func (s *PostgresStore) MarkPublished(ctx context.Context, eventIDs []string, at time.Time) error {
	if len(eventIDs) == 0 {
		return nil
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE event_outbox SET published_at = $1 WHERE event_id = ANY($2::uuid[])
	`, at, pq.Array(eventIDs))
	if err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	defer rows.Close()
	var out []*models.Event
	for rows.Next() {
		var (
			ev          models.Event
			correlation sql.NullString
			payload     []byte
		)
		if err := rows.Scan(&ev.EventID, &ev.EventType, &ev.AggregateType, &ev.AggregateID,
			&ev.ActorType, &ev.ActorID, &correlation, &payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.CorrelationID = correlation.String
		ev.Payload = payload
		ev.CreatedAt = ev.CreatedAt.UTC()
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}
