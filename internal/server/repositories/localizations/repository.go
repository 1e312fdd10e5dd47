package localizations

import (
	"context"

	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// Repository persists localized text rows keyed by (owner, language).
// Owners are package supplements (package-level fallback) or package
// versions (most specific).
type Repository interface {
	GetForOwner(ctx context.Context, ownerType string, ownerID int64, languageCode string) (*models.Localization, error)
	Upsert(ctx context.Context, loc *models.Localization) error
	// ListForOwners performs one batched retrieval across many owners and
	// languages; the bulk localization resolver is its only caller.
	ListForOwners(ctx context.Context, ownerType string, ownerIDs []int64, languageCodes []string) ([]*models.Localization, error)
}
