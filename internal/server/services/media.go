package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/dbx"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/server/graphics"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/repomanager"
)

// Upload bounds. Inputs above these limits are rejected before any decode
// attempt so oversized uploads cannot balloon memory.
const (
	MaxIconBytes       = 128 * 1024
	MaxScreenshotBytes = 2 * 1024 * 1024

	// MaxScreenshotSide is the largest accepted screenshot dimension.
	MaxScreenshotSide = 1500
)

// MediaService validates and persists uploaded icon and screenshot bytes
// for package supplements, keeping the rendered icon cache coherent by
// evicting it on every accepted icon change.
type MediaService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	icons       IconEvicter
	logger      logging.Logger
}

func NewMediaService(db *sql.DB, rm repomanager.RepositoryManager, icons IconEvicter, logger logging.Logger) *MediaService {
	return &MediaService{db: db, repomanager: rm, icons: icons, logger: logger}
}

// StoreIcon validates and persists one icon source for the supplement. PNG
// data must decode to a square of an allowed side length (matching
// expectedSize when given); vector data must carry the format signature and
// no size. A byte-identical record already present is returned unchanged,
// with no modification-log entry and no cache eviction.
func (s *MediaService) StoreIcon(ctx context.Context, supplementID int64, mediaType string, expectedSize *int, data []byte) (*models.IconRecord, error) {
	if len(data) == 0 || len(data) > MaxIconBytes {
		return nil, &common.BadIconError{
			MediaType: mediaType,
			Reason:    fmt.Sprintf("payload of %d bytes outside the accepted range", len(data)),
		}
	}

	var size *int
	switch mediaType {
	case models.MediaTypePNG:
		actual, err := graphics.ValidateBitmapIcon(data, expectedSize)
		if err != nil {
			return nil, err
		}
		size = &actual
	case models.MediaTypeHVIF:
		if expectedSize != nil {
			return nil, &common.BadIconError{
				MediaType: mediaType,
				Size:      *expectedSize,
				Reason:    "vector icons carry no size",
			}
		}
		if err := graphics.ValidateVectorIcon(data); err != nil {
			return nil, err
		}
	default:
		return nil, &common.BadIconError{MediaType: mediaType, Reason: "unsupported media type"}
	}

	var stored *models.IconRecord
	changed := false
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		mediaRepo := s.repomanager.Media(tx)

		existing, err := mediaRepo.GetIcon(ctx, supplementID, mediaType, size)
		if err == nil && bytes.Equal(existing.Data, data) {
			stored = existing
			return nil
		}
		if err != nil && !isNotFound(err) {
			return err
		}

		rec := &models.IconRecord{
			SupplementID: supplementID,
			MediaType:    mediaType,
			Size:         size,
			Data:         data,
		}
		if err := mediaRepo.UpsertIcon(ctx, rec); err != nil {
			return err
		}
		stored = rec
		changed = true

		return s.repomanager.Packages(tx).AddSupplementModification(ctx, supplementID,
			fmt.Sprintf("stored icon %s", describeIcon(mediaType, size)))
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.icons.Evict(supplementID)
		s.logger.Info(ctx, "stored icon", "supplement_id", supplementID, "media_type", mediaType)
	}
	return stored, nil
}

// RemoveIcons drops every icon source of the supplement and evicts its
// cached renders.
func (s *MediaService) RemoveIcons(ctx context.Context, supplementID int64) error {
	removed := int64(0)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		n, err := s.repomanager.Media(tx).DeleteIcons(ctx, supplementID)
		if err != nil {
			return err
		}
		removed = n
		if n == 0 {
			return nil
		}
		return s.repomanager.Packages(tx).AddSupplementModification(ctx, supplementID, "removed icons")
	})
	if err != nil {
		return err
	}

	if removed > 0 {
		s.icons.Evict(supplementID)
	}
	return nil
}

// StoreScreenshot validates and persists one PNG screenshot. A
// byte-identical screenshot already stored for the supplement is returned
// unchanged. Without an explicit ordering the screenshot is appended after
// the existing ones.
func (s *MediaService) StoreScreenshot(ctx context.Context, supplementID int64, data []byte, ordering *int) (*models.ScreenshotRecord, error) {
	if len(data) == 0 || len(data) > MaxScreenshotBytes {
		return nil, &common.BadScreenshotError{
			MediaType: models.MediaTypePNG,
			Reason:    fmt.Sprintf("payload of %d bytes outside the accepted range", len(data)),
		}
	}
	width, height, err := graphics.ValidateScreenshot(data, MaxScreenshotSide)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	var stored *models.ScreenshotRecord
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		mediaRepo := s.repomanager.Media(tx)

		existing, err := mediaRepo.GetScreenshotByHash(ctx, supplementID, hash)
		if err == nil {
			stored = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		ord := 0
		if ordering != nil {
			ord = *ordering
		} else {
			maxOrdering, err := mediaRepo.MaxScreenshotOrdering(ctx, supplementID)
			if err != nil {
				return err
			}
			ord = maxOrdering + 1
		}

		stored, err = mediaRepo.CreateScreenshot(ctx, &models.ScreenshotRecord{
			SupplementID: supplementID,
			Code:         uuid.New().String(),
			Hash:         hash,
			Ordering:     ord,
			Width:        width,
			Height:       height,
			Length:       int64(len(data)),
			Data:         data,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// DeleteScreenshot removes one screenshot by its code.
func (s *MediaService) DeleteScreenshot(ctx context.Context, code string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Media(tx).DeleteScreenshot(ctx, code)
	})
}

// RenderScreenshot returns the screenshot scaled to fit the given bounds.
func (s *MediaService) RenderScreenshot(ctx context.Context, code string, maxWidth, maxHeight int) ([]byte, error) {
	rec, err := s.repomanager.Media(s.db).GetScreenshotByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec.Width <= maxWidth && rec.Height <= maxHeight {
		return rec.Data, nil
	}
	return graphics.Thumbnail(rec.Data, maxWidth, maxHeight)
}

// ReorderScreenshots re-derives the supplement's display order. The given
// codes are mapped to content hashes first, so an ordering captured on one
// supplement reproduces on another that shares the same images; screenshots
// not named sort after all named ones, by their own code. The final
// ordering integers are contiguous and 1-based.
func (s *MediaService) ReorderScreenshots(ctx context.Context, supplementID int64, orderedCodes []string) error {
	seen := make(map[string]struct{}, len(orderedCodes))
	for _, code := range orderedCodes {
		if _, dup := seen[code]; dup {
			return fmt.Errorf("%w: duplicate screenshot code %q", common.ErrIllegalState, code)
		}
		seen[code] = struct{}{}
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		mediaRepo := s.repomanager.Media(tx)

		// Codes may belong to another supplement sharing the same images,
		// which is why ordering is keyed by hash rather than by code.
		hashRank := make(map[string]int, len(orderedCodes))
		for i, code := range orderedCodes {
			rec, err := mediaRepo.GetScreenshotByCode(ctx, code)
			if err != nil {
				return fmt.Errorf("resolve screenshot %q: %w", code, err)
			}
			if _, ok := hashRank[rec.Hash]; !ok {
				hashRank[rec.Hash] = i
			}
		}

		screenshots, err := mediaRepo.ListScreenshots(ctx, supplementID)
		if err != nil {
			return err
		}

		sort.SliceStable(screenshots, func(i, j int) bool {
			ri, namedI := hashRank[screenshots[i].Hash]
			rj, namedJ := hashRank[screenshots[j].Hash]
			switch {
			case namedI && namedJ:
				return ri < rj
			case namedI:
				return true
			case namedJ:
				return false
			default:
				return screenshots[i].Code < screenshots[j].Code
			}
		})

		for i, rec := range screenshots {
			if rec.Ordering == i+1 {
				continue
			}
			if err := mediaRepo.UpdateScreenshotOrdering(ctx, rec.ID, i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}

func describeIcon(mediaType string, size *int) string {
	if size != nil {
		return fmt.Sprintf("(%s, %dpx)", mediaType, *size)
	}
	return fmt.Sprintf("(%s)", mediaType)
}
