package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"mic/internal/sources/models"
	txcontext "mic/pkg/platform/tx"
)

// PostgresStore reads and maintains the sources reference table.
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

// Upsert stores or replaces a source.
func (s *PostgresStore) Upsert(ctx context.Context, src *models.Source) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO sources (source_id, name, authority_tier, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (source_id) DO UPDATE
		SET name = EXCLUDED.name, authority_tier = EXCLUDED.authority_tier, updated_at = EXCLUDED.updated_at
	`, src.ID, src.Name, src.AuthorityTier, src.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

// Tiers returns the authority tier of each known source in ids. Unknown ids
// are absent from the result.
func (s *PostgresStore) Tiers(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.execer(ctx).QueryContext(ctx, `
		SELECT source_id, authority_tier FROM sources WHERE source_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load source tiers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, tier string
		if err := rows.Scan(&id, &tier); err != nil {
			return nil, fmt.Errorf("scan source tier: %w", err)
		}
		out[id] = tier
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source tiers: %w", err)
	}
	return out, nil
}
