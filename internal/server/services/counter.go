package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/dbx"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/retry"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/repomanager"
)

// CounterService performs small single-row counter mutations that tolerate
// racing importers and readers. Each attempt runs in a fresh transaction
// with a fresh read, so a stamp conflict only costs a backoff wait.
type CounterService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger

	attempts uint64
	interval time.Duration
}

func NewCounterService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *CounterService {
	return &CounterService{
		db:          db,
		repomanager: rm,
		logger:      logger,
		attempts:    retry.DefaultAttempts,
		interval:    retry.DefaultInitialInterval,
	}
}

// IncrementViewCounter bumps a version's view counter by one. Stamp
// conflicts are retried with jittered backoff; after the attempt budget is
// spent the call fails with ErrConcurrencyExhausted.
func (s *CounterService) IncrementViewCounter(ctx context.Context, versionID int64) error {
	isConflict := func(err error) bool {
		return errors.Is(err, common.ErrVersionConflict)
	}

	err := retry.Do(ctx, s.attempts, s.interval, isConflict, func() error {
		return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
			versionRepo := s.repomanager.Versions(tx)
			version, err := versionRepo.GetByID(ctx, versionID)
			if err != nil {
				return err
			}
			version.ViewCounter++
			return versionRepo.Update(ctx, version)
		})
	})
	if errors.Is(err, common.ErrVersionConflict) {
		s.logger.Warn(ctx, "view counter increment lost the race", "version_id", versionID)
		return common.ErrConcurrencyExhausted
	}
	return err
}
