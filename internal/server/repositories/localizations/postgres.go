// Package localizations provides the PostgreSQL-backed repository for
// localized title/summary/description rows.
package localizations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/dbx"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanLocalization(row interface{ Scan(...any) error }) (*models.Localization, error) {
	var (
		l           models.Localization
		title       sql.NullString
		summary     sql.NullString
		description sql.NullString
	)
	err := row.Scan(&l.ID, &l.OwnerType, &l.OwnerID, &l.LanguageCode, &title, &summary, &description)
	if err != nil {
		return nil, err
	}
	if title.Valid {
		l.Title = &title.String
	}
	if summary.Valid {
		l.Summary = &summary.String
	}
	if description.Valid {
		l.Description = &description.String
	}
	return &l, nil
}

func (r *PostgresRepository) GetForOwner(ctx context.Context, ownerType string, ownerID int64, languageCode string) (*models.Localization, error) {
	query := `
		SELECT id, owner_type, owner_id, language_code, title, summary, description
		FROM localization
		WHERE owner_type = $1 AND owner_id = $2 AND language_code = $3`

	l, err := scanLocalization(r.db.QueryRowContext(ctx, query, ownerType, ownerID, languageCode))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select localization: %w", err)
	}
	return l, nil
}

// Upsert writes loc, storing empty optional fields as NULL so that absence
// stays distinguishable from empty text.
func (r *PostgresRepository) Upsert(ctx context.Context, loc *models.Localization) error {
	query := `
		INSERT INTO localization (owner_type, owner_id, language_code, title, summary, description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (owner_type, owner_id, language_code)
		DO UPDATE SET title = EXCLUDED.title, summary = EXCLUDED.summary, description = EXCLUDED.description`

	_, err := r.db.ExecContext(ctx, query,
		loc.OwnerType, loc.OwnerID, loc.LanguageCode, loc.Title, loc.Summary, loc.Description)
	if err != nil {
		return fmt.Errorf("upsert localization: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForOwners(ctx context.Context, ownerType string, ownerIDs []int64, languageCodes []string) ([]*models.Localization, error) {
	query := `
		SELECT id, owner_type, owner_id, language_code, title, summary, description
		FROM localization
		WHERE owner_type = $1 AND owner_id = ANY($2) AND language_code = ANY($3)`

	rows, err := r.db.QueryContext(ctx, query, ownerType, ownerIDs, languageCodes)
	if err != nil {
		return nil, fmt.Errorf("select localizations: %w", err)
	}
	defer rows.Close()

	var result []*models.Localization
	for rows.Next() {
		l, err := scanLocalization(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
