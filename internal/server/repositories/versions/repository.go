package versions

import (
	"context"

	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// Repository persists package versions together with their set-valued
// metadata (copyrights, licenses, home-page URL).
//
// Update is guarded by the optimistic-concurrency stamp: when the persisted
// stamp has moved since the row was read, the call fails with
// common.ErrVersionConflict and writes nothing.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*models.PackageVersion, error)
	GetForCoordinate(ctx context.Context, packageID, architectureID, sourceID int64, coordinate models.VersionCoordinate) (*models.PackageVersion, error)
	GetLatest(ctx context.Context, packageID, architectureID, sourceID int64) (*models.PackageVersion, error)
	ListActiveByPackageAndArchitecture(ctx context.Context, packageID, architectureID int64) ([]*models.PackageVersion, error)
	Create(ctx context.Context, v *models.PackageVersion) (*models.PackageVersion, error)
	Update(ctx context.Context, v *models.PackageVersion) error

	ListCopyrights(ctx context.Context, versionID int64) ([]string, error)
	AddCopyright(ctx context.Context, versionID int64, body string) error
	RemoveCopyright(ctx context.Context, versionID int64, body string) error

	ListLicenses(ctx context.Context, versionID int64) ([]string, error)
	AddLicense(ctx context.Context, versionID int64, body string) error
	RemoveLicense(ctx context.Context, versionID int64, body string) error

	GetURL(ctx context.Context, versionID int64) (*models.VersionURL, error)
	ReplaceURL(ctx context.Context, versionID int64, url *models.VersionURL) error
}
