package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"mic/internal/sanctions/models"
	"mic/pkg/platform/sentinel"
	strutil "mic/pkg/platform/strings"
)

// PostgresLists searches the ofac_sdn and bis_dpl reference tables.
type PostgresLists struct {
	db *sql.DB
}

func NewPostgresLists(db *sql.DB) *PostgresLists {
	return &PostgresLists{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an upper-cased LIKE pattern matching name anywhere.
func containsPattern(name string) string {
	return "%" + likeEscaper.Replace(strings.ToUpper(name)) + "%"
}

func (l *PostgresLists) SearchOFAC(ctx context.Context, name string, limit int) ([]models.Match, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT uid, first_name, last_name, entity_type, programs
		FROM ofac_sdn
		WHERE UPPER(last_name) LIKE $1
		   OR UPPER(first_name || ' ' || last_name) LIKE $1
		   OR UPPER(last_name || ' ' || first_name) LIKE $1
		ORDER BY uid
		LIMIT $2
	`, containsPattern(name), limit)
	if err != nil {
		return nil, fmt.Errorf("search ofac_sdn: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var (
			uid, first, last, entityType string
			programs                     []string
		)
		if err := rows.Scan(&uid, &first, &last, &entityType, pq.Array(&programs)); err != nil {
			return nil, fmt.Errorf("scan ofac_sdn row: %w", err)
		}
		out = append(out, models.Match{
			List:       models.ListOFACSDN,
			UID:        uid,
			Name:       strings.TrimSpace(first + " " + last),
			EntityType: entityType,
			Programs:   strutil.DedupeAndTrim(programs),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ofac_sdn rows: %w", err)
	}
	return out, nil
}

func (l *PostgresLists) SearchBIS(ctx context.Context, name string, limit int) ([]models.Match, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, name, COALESCE(action, '')
		FROM bis_dpl
		WHERE UPPER(name) LIKE $1
		ORDER BY id
		LIMIT $2
	`, containsPattern(name), limit)
	if err != nil {
		return nil, fmt.Errorf("search bis_dpl: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var (
			id            int64
			entry, action string
		)
		if err := rows.Scan(&id, &entry, &action); err != nil {
			return nil, fmt.Errorf("scan bis_dpl row: %w", err)
		}
		m := models.Match{
			List:     models.ListBISDPL,
			UID:      strconv.FormatInt(id, 10),
			Name:     entry,
			Programs: strutil.DedupeAndTrim([]string{action}),
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bis_dpl rows: %w", err)
	}
	return out, nil
}
