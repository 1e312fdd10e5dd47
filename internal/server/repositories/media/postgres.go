// Package media provides the PostgreSQL-backed repository for icon and
// screenshot records.
package media

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

func scanIcon(row interface{ Scan(...any) error }) (*models.IconRecord, error) {
	var (
		rec  models.IconRecord
		size sql.NullInt32
	)
	err := row.Scan(&rec.ID, &rec.SupplementID, &rec.MediaType, &size, &rec.Data, &rec.ModifyTimestamp)
	if err != nil {
		return nil, err
	}
	if size.Valid {
		n := int(size.Int32)
		rec.Size = &n
	}
	return &rec, nil
}

func (r *PostgresRepository) ListIcons(ctx context.Context, supplementID int64) ([]*models.IconRecord, error) {
	query := `
		SELECT id, supplement_id, media_type, size, data, modify_timestamp
		FROM icon_record WHERE supplement_id = $1
		ORDER BY media_type, size`

	rows, err := r.db.QueryContext(ctx, query, supplementID)
	if err != nil {
		return nil, fmt.Errorf("select icons: %w", err)
	}
	defer rows.Close()

	var result []*models.IconRecord
	for rows.Next() {
		rec, err := scanIcon(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetIcon(ctx context.Context, supplementID int64, mediaType string, size *int) (*models.IconRecord, error) {
	query := `
		SELECT id, supplement_id, media_type, size, data, modify_timestamp
		FROM icon_record
		WHERE supplement_id = $1 AND media_type = $2 AND size IS NOT DISTINCT FROM $3`

	rec, err := scanIcon(r.db.QueryRowContext(ctx, query, supplementID, mediaType, size))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select icon: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) UpsertIcon(ctx context.Context, rec *models.IconRecord) error {
	// Two partial unique indexes back this table, so the upsert is spelled
	// as delete-then-insert inside the caller's transaction.
	del := `
		DELETE FROM icon_record
		WHERE supplement_id = $1 AND media_type = $2 AND size IS NOT DISTINCT FROM $3`
	if _, err := r.db.ExecContext(ctx, del, rec.SupplementID, rec.MediaType, rec.Size); err != nil {
		return fmt.Errorf("delete icon for upsert: %w", err)
	}

	ins := `
		INSERT INTO icon_record (supplement_id, media_type, size, data)
		VALUES ($1, $2, $3, $4)
		RETURNING id, modify_timestamp`
	err := r.db.QueryRowContext(ctx, ins, rec.SupplementID, rec.MediaType, rec.Size, rec.Data).
		Scan(&rec.ID, &rec.ModifyTimestamp)
	if err != nil {
		return fmt.Errorf("insert icon: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteIcons(ctx context.Context, supplementID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM icon_record WHERE supplement_id = $1`, supplementID)
	if err != nil {
		return 0, fmt.Errorf("delete icons: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func scanScreenshot(row interface{ Scan(...any) error }) (*models.ScreenshotRecord, error) {
	var rec models.ScreenshotRecord
	err := row.Scan(&rec.ID, &rec.SupplementID, &rec.Code, &rec.Hash, &rec.Ordering,
		&rec.Width, &rec.Height, &rec.Length, &rec.Data, &rec.CreateTimestamp)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

const selectScreenshot = `
	SELECT id, supplement_id, code, hash, ordering, width, height, length, data, create_timestamp
	FROM screenshot_record`

func (r *PostgresRepository) ListScreenshots(ctx context.Context, supplementID int64) ([]*models.ScreenshotRecord, error) {
	query := selectScreenshot + ` WHERE supplement_id = $1 ORDER BY ordering, code`

	rows, err := r.db.QueryContext(ctx, query, supplementID)
	if err != nil {
		return nil, fmt.Errorf("select screenshots: %w", err)
	}
	defer rows.Close()

	var result []*models.ScreenshotRecord
	for rows.Next() {
		rec, err := scanScreenshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetScreenshotByCode(ctx context.Context, code string) (*models.ScreenshotRecord, error) {
	rec, err := scanScreenshot(r.db.QueryRowContext(ctx, selectScreenshot+` WHERE code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select screenshot by code: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetScreenshotByHash(ctx context.Context, supplementID int64, hash string) (*models.ScreenshotRecord, error) {
	query := selectScreenshot + ` WHERE supplement_id = $1 AND hash = $2`

	rec, err := scanScreenshot(r.db.QueryRowContext(ctx, query, supplementID, hash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select screenshot by hash: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) MaxScreenshotOrdering(ctx context.Context, supplementID int64) (int, error) {
	query := `SELECT COALESCE(MAX(ordering), 0) FROM screenshot_record WHERE supplement_id = $1`

	var max int
	if err := r.db.QueryRowContext(ctx, query, supplementID).Scan(&max); err != nil {
		return 0, fmt.Errorf("select max screenshot ordering: %w", err)
	}
	return max, nil
}

func (r *PostgresRepository) CreateScreenshot(ctx context.Context, rec *models.ScreenshotRecord) (*models.ScreenshotRecord, error) {
	query := `
		INSERT INTO screenshot_record (supplement_id, code, hash, ordering, width, height, length, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, create_timestamp`

	err := r.db.QueryRowContext(ctx, query,
		rec.SupplementID, rec.Code, rec.Hash, rec.Ordering, rec.Width, rec.Height, rec.Length, rec.Data).
		Scan(&rec.ID, &rec.CreateTimestamp)
	if err != nil {
		return nil, fmt.Errorf("insert screenshot: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) DeleteScreenshot(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM screenshot_record WHERE code = $1`, code)
	if err != nil {
		return fmt.Errorf("delete screenshot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) UpdateScreenshotOrdering(ctx context.Context, id int64, ordering int) error {
	query := `UPDATE screenshot_record SET ordering = $2 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, ordering); err != nil {
		return fmt.Errorf("update screenshot ordering: %w", err)
	}
	return nil
}
