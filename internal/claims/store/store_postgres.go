package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mic/internal/claims/models"
	"mic/pkg/platform/sentinel"
	txcontext "mic/pkg/platform/tx"
)

// PostgresStore persists claims and validations.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) CreateClaim(ctx context.Context, claim *models.Claim) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO claims (claim_id, content, created_at) VALUES ($1, $2, $3)
	`, claim.ID, claim.Content, claim.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert claim: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetClaim(ctx context.Context, claimID string) (*models.Claim, error) {
	var c models.Claim
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT claim_id, content, created_at FROM claims WHERE claim_id = $1
	`, claimID).Scan(&c.ID, &c.Content, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get claim: %w", err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *PostgresStore) CreateValidation(ctx context.Context, v *models.Validation) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO validations (validation_id, claim_id, source_id, outcome, confidence, evidence_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, v.ID, v.ClaimID, v.SourceID, v.Outcome, v.Confidence,
		sql.NullString{String: v.EvidenceRef, Valid: v.EvidenceRef != ""}, v.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert validation: %w", err)
	}
	return nil
}

// ListValidations returns validations for claimID, newest first. A limit of
// zero or less returns all of them.
func (s *PostgresStore) ListValidations(ctx context.Context, claimID string, limit int) ([]*models.Validation, error) {
	query := `
		SELECT validation_id, claim_id, source_id, outcome, confidence, evidence_ref, created_at
		FROM validations
		WHERE claim_id = $1
		ORDER BY created_at DESC, validation_id DESC`
	args := []any{claimID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	rows, err := s.execer(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list validations: %w", err)
	}
	defer rows.Close()

	var out []*models.Validation
	for rows.Next() {
		var (
			v   models.Validation
			ref sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.ClaimID, &v.SourceID, &v.Outcome, &v.Confidence, &ref, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation: %w", err)
		}
		v.EvidenceRef = ref.String
		v.CreatedAt = v.CreatedAt.UTC()
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validations: %w", err)
	}
	return out, nil
}
