package packages

import (
	"context"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// Repository persists packages, their shared supplements and the
// append-only supplement modification log.
type Repository interface {
	GetByName(ctx context.Context, name string) (*models.Package, error)
	Create(ctx context.Context, pkg *models.Package) (*models.Package, error)
	SetNativeDesktop(ctx context.Context, id int64, nativeDesktop bool) error
	Touch(ctx context.Context, id int64, at time.Time) error

	GetSupplementByBaseName(ctx context.Context, baseName string) (*models.PackageSupplement, error)
	CreateSupplement(ctx context.Context, baseName string) (*models.PackageSupplement, error)
	TouchSupplement(ctx context.Context, id int64, at time.Time) error

	AddSupplementModification(ctx context.Context, supplementID int64, content string) error
	ListSupplementModifications(ctx context.Context, supplementID int64) ([]*models.SupplementModification, error)
}
