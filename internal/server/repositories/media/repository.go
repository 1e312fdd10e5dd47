package media

import (
	"context"

	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// Repository persists icon sources and screenshots for package supplements.
type Repository interface {
	ListIcons(ctx context.Context, supplementID int64) ([]*models.IconRecord, error)
	// GetIcon resolves one record by (supplement, media type, size); size is
	// nil for vector records.
	GetIcon(ctx context.Context, supplementID int64, mediaType string, size *int) (*models.IconRecord, error)
	UpsertIcon(ctx context.Context, rec *models.IconRecord) error
	DeleteIcons(ctx context.Context, supplementID int64) (int64, error)

	ListScreenshots(ctx context.Context, supplementID int64) ([]*models.ScreenshotRecord, error)
	GetScreenshotByCode(ctx context.Context, code string) (*models.ScreenshotRecord, error)
	GetScreenshotByHash(ctx context.Context, supplementID int64, hash string) (*models.ScreenshotRecord, error)
	MaxScreenshotOrdering(ctx context.Context, supplementID int64) (int, error)
	CreateScreenshot(ctx context.Context, rec *models.ScreenshotRecord) (*models.ScreenshotRecord, error)
	DeleteScreenshot(ctx context.Context, code string) error
	UpdateScreenshotOrdering(ctx context.Context, id int64, ordering int) error
}
