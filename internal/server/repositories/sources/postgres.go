// Package sources provides the PostgreSQL-backed repository for reference
// entities consulted during import: repositories, sources, architectures
// and natural languages.
package sources

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

func (r *PostgresRepository) GetRepository(ctx context.Context, id int64) (*models.Repository, error) {
	query := `SELECT id, code, name, active FROM repository WHERE id = $1`

	var repo models.Repository
	err := r.db.QueryRowContext(ctx, query, id).Scan(&repo.ID, &repo.Code, &repo.Name, &repo.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select repository: %w", err)
	}
	return &repo, nil
}

func (r *PostgresRepository) GetSourceByCode(ctx context.Context, code string) (*models.RepositorySource, error) {
	query := `SELECT id, repository_id, code, active, base_url FROM repository_source WHERE code = $1`

	var src models.RepositorySource
	err := r.db.QueryRowContext(ctx, query, code).
		Scan(&src.ID, &src.RepositoryID, &src.Code, &src.Active, &src.BaseURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select repository source: %w", err)
	}
	return &src, nil
}

func (r *PostgresRepository) GetArchitectureByCode(ctx context.Context, code string) (*models.Architecture, error) {
	query := `SELECT id, code FROM architecture WHERE code = $1`

	var arch models.Architecture
	err := r.db.QueryRowContext(ctx, query, code).Scan(&arch.ID, &arch.Code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select architecture: %w", err)
	}
	return &arch, nil
}

func (r *PostgresRepository) GetLanguageByCode(ctx context.Context, code string) (*models.NaturalLanguage, error) {
	query := `SELECT id, code, name FROM natural_language WHERE code = $1`

	var lang models.NaturalLanguage
	err := r.db.QueryRowContext(ctx, query, code).Scan(&lang.ID, &lang.Code, &lang.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select natural language: %w", err)
	}
	return &lang, nil
}
