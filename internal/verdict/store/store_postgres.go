package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"mic/internal/verdict/models"
	"mic/pkg/platform/sentinel"
	txcontext "mic/pkg/platform/tx"
)

// PostgresStore persists verdict history. Snapshots are stored as JSONB
// arrays.
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

func (s *PostgresStore) Insert(ctx context.Context, v *models.Verdict) error {
	ids := v.ValidationIDs
	if ids == nil {
		ids = []string{}
	}
	snapshot, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode verdict snapshot: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO verdicts (verdict_id, claim_id, status, score, validation_ids,
		                      validation_count_total, validation_count_scored, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, v.ID, v.ClaimID, string(v.Status), v.Score, snapshot,
		v.ValidationCountTotal, v.ValidationCountScored, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

func (s *PostgresStore) Latest(ctx context.Context, claimID string) (*models.Verdict, error) {
	list, err := s.List(ctx, claimID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return list[0], nil
}

func (s *PostgresStore) List(ctx context.Context, claimID string, limit int) ([]*models.Verdict, error) {
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT verdict_id, claim_id, status, score, validation_ids,
		       validation_count_total, validation_count_scored, created_at
		FROM verdicts
		WHERE claim_id = $1
		ORDER BY created_at DESC, verdict_id DESC
		LIMIT $2
	`, claimID, limit)
	if err != nil {
		return nil, fmt.Errorf("list verdicts: %w", err)
	}
	defer rows.Close()

	var out []*models.Verdict
	for rows.Next() {
		var (
			v        models.Verdict
			status   string
			snapshot []byte
		)
		if err := rows.Scan(&v.ID, &v.ClaimID, &status, &v.Score, &snapshot,
			&v.ValidationCountTotal, &v.ValidationCountScored, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		if err := json.Unmarshal(snapshot, &v.ValidationIDs); err != nil {
			return nil, fmt.Errorf("decode verdict snapshot: %w", err)
		}
		v.Status = models.Status(status)
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate verdicts: %w", err)
	}
	return out, nil
}
