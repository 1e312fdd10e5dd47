// Package packages provides the PostgreSQL-backed repository for packages,
// package supplements and the supplement modification log.
package packages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Package, error) {
	query := `
		SELECT id, name, active, is_desktop_app, is_native_desktop, supplement_id, modify_timestamp
		FROM package WHERE name = $1`

	var p models.Package
	err := r.db.QueryRowContext(ctx, query, name).Scan(
		&p.ID, &p.Name, &p.Active, &p.IsDesktopApp, &p.IsNativeDesktop, &p.SupplementID, &p.ModifyTimestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select package: %w", err)
	}
	return &p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, pkg *models.Package) (*models.Package, error) {
	query := `
		INSERT INTO package (name, active, is_desktop_app, is_native_desktop, supplement_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, modify_timestamp`

	err := r.db.QueryRowContext(ctx, query,
		pkg.Name, pkg.Active, pkg.IsDesktopApp, pkg.IsNativeDesktop, pkg.SupplementID).
		Scan(&pkg.ID, &pkg.ModifyTimestamp)
	if err != nil {
		return nil, fmt.Errorf("insert package: %w", err)
	}
	return pkg, nil
}

func (r *PostgresRepository) SetNativeDesktop(ctx context.Context, id int64, nativeDesktop bool) error {
	query := `UPDATE package SET is_native_desktop = $2, modify_timestamp = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, nativeDesktop); err != nil {
		return fmt.Errorf("update package native desktop: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE package SET modify_timestamp = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch package: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetSupplementByBaseName(ctx context.Context, baseName string) (*models.PackageSupplement, error) {
	query := `SELECT id, base_name, modify_timestamp FROM package_supplement WHERE base_name = $1`

	var s models.PackageSupplement
	err := r.db.QueryRowContext(ctx, query, baseName).Scan(&s.ID, &s.BaseName, &s.ModifyTimestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select package supplement: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSupplement(ctx context.Context, baseName string) (*models.PackageSupplement, error) {
	query := `
		INSERT INTO package_supplement (base_name)
		VALUES ($1)
		RETURNING id, base_name, modify_timestamp`

	var s models.PackageSupplement
	err := r.db.QueryRowContext(ctx, query, baseName).Scan(&s.ID, &s.BaseName, &s.ModifyTimestamp)
	if err != nil {
		return nil, fmt.Errorf("insert package supplement: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) TouchSupplement(ctx context.Context, id int64, at time.Time) error {
	query := `UPDATE package_supplement SET modify_timestamp = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch package supplement: %w", err)
	}
	return nil
}

func (r *PostgresRepository) AddSupplementModification(ctx context.Context, supplementID int64, content string) error {
	query := `INSERT INTO package_supplement_modification (supplement_id, content) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, supplementID, content); err != nil {
		return fmt.Errorf("insert supplement modification: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListSupplementModifications(ctx context.Context, supplementID int64) ([]*models.SupplementModification, error) {
	query := `
		SELECT id, supplement_id, content, create_timestamp
		FROM package_supplement_modification
		WHERE supplement_id = $1
		ORDER BY create_timestamp, id`

	rows, err := r.db.QueryContext(ctx, query, supplementID)
	if err != nil {
		return nil, fmt.Errorf("select supplement modifications: %w", err)
	}
	defer rows.Close()

	var result []*models.SupplementModification
	for rows.Next() {
		var m models.SupplementModification
		if err := rows.Scan(&m.ID, &m.SupplementID, &m.Content, &m.CreateTimestamp); err != nil {
			return nil, err
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
