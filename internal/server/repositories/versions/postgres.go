// Package versions provides the PostgreSQL-backed repository for package
// versions and their set-valued metadata.
package versions

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

// selectVersion joins the owning package so SupplementID travels with the
// version; resolvers and caches key on it.
const selectVersion = `
	SELECT v.id, v.package_id, p.supplement_id, v.architecture_id, v.repository_source_id,
	       v.major, v.minor, v.micro, v.pre_release, v.revision,
	       v.active, v.is_latest, v.payload_length, v.view_counter, v.mod_stamp, v.import_timestamp
	FROM package_version v
	JOIN package p ON p.id = v.package_id`

func scanVersion(row interface{ Scan(...any) error }) (*models.PackageVersion, error) {
	var (
		v          models.PackageVersion
		minor      sql.NullInt32
		micro      sql.NullInt32
		preRelease sql.NullString
		revision   sql.NullInt32
		payloadLen sql.NullInt64
		importedAt sql.NullTime
	)
	err := row.Scan(
		&v.ID, &v.PackageID, &v.SupplementID, &v.ArchitectureID, &v.RepositorySourceID,
		&v.Coordinate.Major, &minor, &micro, &preRelease, &revision,
		&v.Active, &v.IsLatest, &payloadLen, &v.ViewCounter, &v.ModStamp, &importedAt)
	if err != nil {
		return nil, err
	}
	if minor.Valid {
		n := int(minor.Int32)
		v.Coordinate.Minor = &n
	}
	if micro.Valid {
		n := int(micro.Int32)
		v.Coordinate.Micro = &n
	}
	if preRelease.Valid {
		s := preRelease.String
		v.Coordinate.PreRelease = &s
	}
	if revision.Valid {
		n := int(revision.Int32)
		v.Coordinate.Revision = &n
	}
	if payloadLen.Valid {
		n := payloadLen.Int64
		v.PayloadLength = &n
	}
	if importedAt.Valid {
		t := importedAt.Time
		v.ImportTimestamp = &t
	}
	return &v, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.PackageVersion, error) {
	query := selectVersion + ` WHERE v.id = $1`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select package version: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetForCoordinate(ctx context.Context, packageID, architectureID, sourceID int64, coordinate models.VersionCoordinate) (*models.PackageVersion, error) {
	query := selectVersion + `
	WHERE v.package_id = $1 AND v.architecture_id = $2 AND v.repository_source_id = $3
	  AND v.major = $4
	  AND v.minor IS NOT DISTINCT FROM $5
	  AND v.micro IS NOT DISTINCT FROM $6
	  AND v.pre_release IS NOT DISTINCT FROM $7
	  AND v.revision IS NOT DISTINCT FROM $8`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query,
		packageID, architectureID, sourceID,
		coordinate.Major, coordinate.Minor, coordinate.Micro, coordinate.PreRelease, coordinate.Revision))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select package version by coordinate: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) GetLatest(ctx context.Context, packageID, architectureID, sourceID int64) (*models.PackageVersion, error) {
	query := selectVersion + `
	WHERE v.package_id = $1 AND v.architecture_id = $2 AND v.repository_source_id = $3
	  AND v.is_latest`

	v, err := scanVersion(r.db.QueryRowContext(ctx, query, packageID, architectureID, sourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select latest package version: %w", err)
	}
	return v, nil
}

func (r *PostgresRepository) ListActiveByPackageAndArchitecture(ctx context.Context, packageID, architectureID int64) ([]*models.PackageVersion, error) {
	query := selectVersion + `
	WHERE v.package_id = $1 AND v.architecture_id = $2 AND v.active
	ORDER BY v.id`

	rows, err := r.db.QueryContext(ctx, query, packageID, architectureID)
	if err != nil {
		return nil, fmt.Errorf("select active package versions: %w", err)
	}
	defer rows.Close()

	var result []*models.PackageVersion
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) Create(ctx context.Context, v *models.PackageVersion) (*models.PackageVersion, error) {
	query := `
		INSERT INTO package_version
			(package_id, architecture_id, repository_source_id,
			 major, minor, micro, pre_release, revision,
			 active, is_latest, payload_length, view_counter, mod_stamp, import_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		v.PackageID, v.ArchitectureID, v.RepositorySourceID,
		v.Coordinate.Major, v.Coordinate.Minor, v.Coordinate.Micro, v.Coordinate.PreRelease, v.Coordinate.Revision,
		v.Active, v.IsLatest, v.PayloadLength, v.ViewCounter, v.ModStamp, v.ImportTimestamp).
		Scan(&v.ID)
	if err != nil {
		return nil, fmt.Errorf("insert package version: %w", err)
	}
	return v, nil
}

// Update writes the mutable fields of v guarded by v.ModStamp. On success
// the persisted stamp is incremented and v.ModStamp is advanced to match;
// a stale stamp yields common.ErrVersionConflict.
func (r *PostgresRepository) Update(ctx context.Context, v *models.PackageVersion) error {
	query := `
		UPDATE package_version
		SET active = $3, is_latest = $4, payload_length = $5, view_counter = $6,
		    import_timestamp = $7, mod_stamp = mod_stamp + 1
		WHERE id = $1 AND mod_stamp = $2`

	res, err := r.db.ExecContext(ctx, query,
		v.ID, v.ModStamp, v.Active, v.IsLatest, v.PayloadLength, v.ViewCounter, v.ImportTimestamp)
	if err != nil {
		return fmt.Errorf("update package version: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	switch n {
	case 1:
		v.ModStamp++
		return nil
	case 0:
		return common.ErrVersionConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

func (r *PostgresRepository) ListCopyrights(ctx context.Context, versionID int64) ([]string, error) {
	return r.listBodies(ctx, `SELECT body FROM package_version_copyright WHERE package_version_id = $1 ORDER BY body`, versionID)
}

func (r *PostgresRepository) AddCopyright(ctx context.Context, versionID int64, body string) error {
	query := `INSERT INTO package_version_copyright (package_version_id, body) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, versionID, body); err != nil {
		return fmt.Errorf("insert copyright: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveCopyright(ctx context.Context, versionID int64, body string) error {
	query := `DELETE FROM package_version_copyright WHERE package_version_id = $1 AND body = $2`
	if _, err := r.db.ExecContext(ctx, query, versionID, body); err != nil {
		return fmt.Errorf("delete copyright: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListLicenses(ctx context.Context, versionID int64) ([]string, error) {
	return r.listBodies(ctx, `SELECT body FROM package_version_license WHERE package_version_id = $1 ORDER BY body`, versionID)
}

func (r *PostgresRepository) AddLicense(ctx context.Context, versionID int64, body string) error {
	query := `INSERT INTO package_version_license (package_version_id, body) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, versionID, body); err != nil {
		return fmt.Errorf("insert license: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveLicense(ctx context.Context, versionID int64, body string) error {
	query := `DELETE FROM package_version_license WHERE package_version_id = $1 AND body = $2`
	if _, err := r.db.ExecContext(ctx, query, versionID, body); err != nil {
		return fmt.Errorf("delete license: %w", err)
	}
	return nil
}

func (r *PostgresRepository) listBodies(ctx context.Context, query string, versionID int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, versionID)
	if err != nil {
		return nil, fmt.Errorf("select metadata bodies: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		result = append(result, body)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) GetURL(ctx context.Context, versionID int64) (*models.VersionURL, error) {
	query := `SELECT url, name FROM package_version_url WHERE package_version_id = $1`

	var u models.VersionURL
	err := r.db.QueryRowContext(ctx, query, versionID).Scan(&u.URL, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select version url: %w", err)
	}
	return &u, nil
}

// ReplaceURL swaps the home-page URL pair; a nil url removes it.
func (r *PostgresRepository) ReplaceURL(ctx context.Context, versionID int64, url *models.VersionURL) error {
	if url == nil {
		if _, err := r.db.ExecContext(ctx,
			`DELETE FROM package_version_url WHERE package_version_id = $1`, versionID); err != nil {
			return fmt.Errorf("delete version url: %w", err)
		}
		return nil
	}

	query := `
		INSERT INTO package_version_url (package_version_id, url, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (package_version_id)
		DO UPDATE SET url = EXCLUDED.url, name = EXCLUDED.name`

	if _, err := r.db.ExecContext(ctx, query, versionID, url.URL, url.Name); err != nil {
		return fmt.Errorf("upsert version url: %w", err)
	}
	return nil
}
