package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mic/internal/idempotency/models"
	"mic/pkg/platform/sentinel"
	txcontext "mic/pkg/platform/tx"
)

// PostgresStore persists idempotency records in idempotency_keys. Mutual
// exclusion comes from the table's primary key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// InsertPending inserts rec unless a row with its key exists. A concurrent
// uncommitted insert of the same key blocks this call until that transaction
// ends.
func (s *PostgresStore) InsertPending(ctx context.Context, rec *models.Record) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO idempotency_keys (actor_type, actor_id, idempotency_key, request_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (actor_type, actor_id, idempotency_key) DO NOTHING
	`, rec.ActorType, rec.ActorID, rec.IdempotencyKey, rec.RequestHash, rec.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert idempotency key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert idempotency key rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Get(ctx context.Context, key models.Key) (*models.Record, error) {
	var (
		rec               = models.Record{Key: key}
		statusCode        sql.NullInt32
		eventID           sql.NullString
		aggregateType     sql.NullString
		aggregateID       sql.NullString
		responseCreatedAt sql.NullTime
	)
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT request_hash, status_code, response_body, event_id, aggregate_type, aggregate_id,
		       created_at, response_created_at
		FROM idempotency_keys
		WHERE actor_type = $1 AND actor_id = $2 AND idempotency_key = $3
	`, key.ActorType, key.ActorID, key.IdempotencyKey).Scan(
		&rec.RequestHash, &statusCode, &rec.ResponseBody, &eventID, &aggregateType, &aggregateID,
		&rec.CreatedAt, &responseCreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get idempotency key: %w", err)
	}
	rec.StatusCode = int(statusCode.Int32)
	rec.EventID = eventID.String
	rec.AggregateType = aggregateType.String
	rec.AggregateID = aggregateID.String
	if responseCreatedAt.Valid {
		at := responseCreatedAt.Time
		rec.ResponseCreatedAt = &at
	}
	return &rec, nil
}

// TakeOverStale restamps a pending record older than staleBefore so the
// caller owns it. Only one concurrent caller can succeed.
func (s *PostgresStore) TakeOverStale(ctx context.Context, key models.Key, requestHash string, staleBefore, now time.Time) (bool, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE idempotency_keys
		SET created_at = $5
		WHERE actor_type = $1 AND actor_id = $2 AND idempotency_key = $3
		  AND request_hash = $4
		  AND response_created_at IS NULL
		  AND created_at < $6
	`, key.ActorType, key.ActorID, key.IdempotencyKey, requestHash, now, staleBefore)
	if err != nil {
		return false, fmt.Errorf("take over idempotency key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("take over idempotency key rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *PostgresStore) Finalize(ctx context.Context, key models.Key, fin models.Finalization) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE idempotency_keys
		SET status_code = $4,
		    response_body = $5,
		    event_id = NULLIF($6, '')::uuid,
		    aggregate_type = NULLIF($7, ''),
		    aggregate_id = NULLIF($8, ''),
		    response_created_at = $9
		WHERE actor_type = $1 AND actor_id = $2 AND idempotency_key = $3
		  AND response_created_at IS NULL
	`, key.ActorType, key.ActorID, key.IdempotencyKey,
		fin.StatusCode, fin.Body, fin.EventID, fin.AggregateType, fin.AggregateID, fin.ResponseCreatedAt)
	if err != nil {
		return fmt.Errorf("finalize idempotency key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finalize idempotency key rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrInvalidState
	}
	return nil
}
