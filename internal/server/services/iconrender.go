package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pkgdepot/pkgdepot/internal/cachex"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/server/graphics"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/repomanager"
)

// IconCacheOptions bounds the two cache levels: the outer level is keyed by
// supplement, the inner one by requested pixel size. The generic cache holds
// renders of the built-in placeholder icon.
type IconCacheOptions struct {
	SupplementCapacity int
	SupplementTTL      time.Duration
	SizeCapacity       int
	SizeTTL            time.Duration
	GenericCapacity    int
	GenericTTL         time.Duration
}

func DefaultIconCacheOptions() IconCacheOptions {
	return IconCacheOptions{
		SupplementCapacity: 256,
		SupplementTTL:      time.Hour,
		SizeCapacity:       8,
		SizeTTL:            15 * time.Minute,
		GenericCapacity:    8,
		GenericTTL:         12 * time.Hour,
	}
}

// IconRenderService derives fixed-size bitmap icons from a supplement's
// stored icon sources and caches the renders. A vector source rasterizes at
// the exact requested size; bitmap sources serve the smallest stored size
// covering the request, falling back to the largest stored size rather than
// upscaling.
type IconRenderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	rasterizer  graphics.Rasterizer
	optimizer   graphics.Optimizer
	logger      logging.Logger

	opts        IconCacheOptions
	supplements *cachex.Cache[int64, *cachex.Cache[int, []byte]]
	generic     *cachex.Cache[int, []byte]
	group       singleflight.Group

	// mu orders cache fills against Evict: a fill that read icon rows
	// before an eviction must not re-insert its render afterwards.
	mu          sync.Mutex
	generations map[int64]uint64
}

func NewIconRenderService(db *sql.DB, rm repomanager.RepositoryManager, rasterizer graphics.Rasterizer,
	optimizer graphics.Optimizer, logger logging.Logger, opts IconCacheOptions) *IconRenderService {
	return &IconRenderService{
		db:          db,
		repomanager: rm,
		rasterizer:  rasterizer,
		optimizer:   optimizer,
		logger:      logger,
		opts:        opts,
		supplements: cachex.New[int64, *cachex.Cache[int, []byte]](opts.SupplementCapacity, opts.SupplementTTL),
		generic:     cachex.New[int, []byte](opts.GenericCapacity, opts.GenericTTL),
		generations: map[int64]uint64{},
	}
}

// Render returns the supplement's icon as a PNG of the requested size, or
// nil when the supplement has no icon source at all; callers then fall back
// to RenderGeneric. Concurrent misses for the same (supplement, size)
// collapse into one fill.
func (s *IconRenderService) Render(ctx context.Context, size int, supplementID int64) ([]byte, error) {
	if inner, ok := s.supplements.Get(supplementID); ok {
		if data, ok := inner.Get(size); ok {
			return data, nil
		}
	}

	v, err, _ := s.group.Do(fmt.Sprintf("%d/%d", supplementID, size), func() (any, error) {
		gen := s.generation(supplementID)
		data, err := s.renderFromSources(ctx, size, supplementID)
		if err != nil {
			return nil, err
		}
		s.storeRender(supplementID, size, data, gen)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// RenderGeneric returns the built-in placeholder icon at the requested size.
func (s *IconRenderService) RenderGeneric(ctx context.Context, size int) ([]byte, error) {
	if data, ok := s.generic.Get(size); ok {
		return data, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("generic/%d", size), func() (any, error) {
		data, err := graphics.RenderPlaceholder(size)
		if err != nil {
			return nil, err
		}
		s.generic.Put(size, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Evict drops every cached render for the supplement and invalidates any
// in-flight fill that read icon rows before this point. Icon writers call it
// synchronously after their transaction commits.
func (s *IconRenderService) Evict(supplementID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[supplementID]++
	s.supplements.Remove(supplementID)
}

func (s *IconRenderService) generation(supplementID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generations[supplementID]
}

// storeRender caches a finished render unless Evict ran for the supplement
// after gen was captured; the rows the fill rendered from may predate the
// write that triggered the eviction.
func (s *IconRenderService) storeRender(supplementID int64, size int, data []byte, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[supplementID] != gen {
		return
	}
	inner, ok := s.supplements.Get(supplementID)
	if !ok {
		inner = cachex.New[int, []byte](s.opts.SizeCapacity, s.opts.SizeTTL)
		s.supplements.Put(supplementID, inner)
	}
	inner.Put(size, data)
}

func (s *IconRenderService) renderFromSources(ctx context.Context, size int, supplementID int64) ([]byte, error) {
	icons, err := s.repomanager.Media(s.db).ListIcons(ctx, supplementID)
	if err != nil {
		return nil, err
	}

	var vector *models.IconRecord
	var bitmaps []*models.IconRecord
	for _, rec := range icons {
		switch rec.MediaType {
		case models.MediaTypeHVIF:
			vector = rec
		case models.MediaTypePNG:
			if rec.Size != nil {
				bitmaps = append(bitmaps, rec)
			}
		}
	}

	if vector != nil {
		png, err := s.rasterizer.RasterizeVector(ctx, vector.Data, size)
		if err != nil {
			return nil, fmt.Errorf("rasterize icon for supplement %d: %w", supplementID, err)
		}
		optimized, err := s.optimizer.OptimizePNG(ctx, png)
		if err != nil {
			s.logger.Warn(ctx, "png optimization failed, serving raw render",
				"supplement_id", supplementID, "size", size, "err", err)
			return png, nil
		}
		return optimized, nil
	}

	if best := pickBitmap(bitmaps, size); best != nil {
		return best.Data, nil
	}
	return nil, nil
}

// pickBitmap selects the smallest stored size covering the request, or the
// largest stored size when nothing covers it.
func pickBitmap(bitmaps []*models.IconRecord, size int) *models.IconRecord {
	var covering, largest *models.IconRecord
	for _, rec := range bitmaps {
		if largest == nil || *rec.Size > *largest.Size {
			largest = rec
		}
		if *rec.Size >= size && (covering == nil || *rec.Size < *covering.Size) {
			covering = rec
		}
	}
	if covering != nil {
		return covering
	}
	return largest
}
