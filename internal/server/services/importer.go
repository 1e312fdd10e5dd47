// Package services implements the catalog engine operations: version
// import, counter mutation, localization resolution, icon rendering and
// icon/screenshot storage. Each operation runs against the repositories
// vended by a RepositoryManager and opens its own transaction.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/dbx"
	"github.com/pkgdepot/pkgdepot/internal/filex"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/server/graphics"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/packages"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/repomanager"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/versions"
	"github.com/pkgdepot/pkgdepot/internal/server/transfer"
)

type (
	packagesRepo = packages.Repository
	versionsRepo = versions.Repository
)

// ImportFact is one parsed package-version observation produced by the
// upstream repository crawl. The parser itself is an external collaborator;
// the importer only consumes its output.
type ImportFact struct {
	Name             string
	ArchitectureCode string
	Coordinate       models.VersionCoordinate
	Summary          *string
	Description      *string
	Copyrights       []string
	Licenses         []string
	HomePageURL      *models.VersionURL
}

// PayloadDetails is what payload introspection can contribute beyond the
// fact itself: an embedded vector icon and the desktop-link marker.
type PayloadDetails struct {
	IconData       []byte
	HasDesktopLink bool
}

// PayloadInspector reads a downloaded package artifact's table of contents.
type PayloadInspector interface {
	Inspect(ctx context.Context, path string) (*PayloadDetails, error)
}

// NopInspector contributes nothing; payload fetches then only record the
// artifact's byte length.
type NopInspector struct{}

func (NopInspector) Inspect(context.Context, string) (*PayloadDetails, error) {
	return &PayloadDetails{}, nil
}

// IconEvicter is the slice of the icon renderer the importer and media
// store need: synchronous eviction after icon writes.
type IconEvicter interface {
	Evict(supplementID int64)
}

type ImporterService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	transfer    transfer.Transfer
	inspector   PayloadInspector
	icons       IconEvicter
	tempDir     string
	logger      logging.Logger

	now func() time.Time
}

func NewImporterService(db *sql.DB, rm repomanager.RepositoryManager, tr transfer.Transfer,
	inspector PayloadInspector, icons IconEvicter, tempDir string, logger logging.Logger) *ImporterService {
	return &ImporterService{
		db:          db,
		repomanager: rm,
		transfer:    tr,
		inspector:   inspector,
		icons:       icons,
		tempDir:     tempDir,
		logger:      logger,
		now:         time.Now,
	}
}

// ImportObservedVersion reconciles one observed package-version fact against
// the catalog inside a single transaction. It creates the package, its
// shared supplement and the version as needed, reactivates the version,
// syncs set-valued metadata, upserts the English localization and
// re-establishes the single-latest invariant, including regression
// correction. With populateFromPayload set it additionally fetches the
// artifact to record its length and extract an icon; enrichment failures
// are logged and never fail the import.
func (s *ImporterService) ImportObservedVersion(ctx context.Context, sourceCode string, fact *ImportFact, populateFromPayload bool) error {
	var evictSupplement int64

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		sourceRepo := s.repomanager.Sources(tx)
		packageRepo := s.repomanager.Packages(tx)
		versionRepo := s.repomanager.Versions(tx)

		source, err := sourceRepo.GetSourceByCode(ctx, sourceCode)
		if err != nil {
			return fmt.Errorf("resolve source %q: %w", sourceCode, err)
		}
		if !source.Active {
			return common.ErrInactiveSource
		}
		repository, err := sourceRepo.GetRepository(ctx, source.RepositoryID)
		if err != nil {
			return fmt.Errorf("resolve repository: %w", err)
		}
		if !repository.Active {
			return common.ErrInactiveSource
		}

		arch, err := sourceRepo.GetArchitectureByCode(ctx, fact.ArchitectureCode)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return fmt.Errorf("%w: %s", common.ErrUnknownArchitecture, fact.ArchitectureCode)
			}
			return err
		}

		pkg, err := s.resolveOrCreatePackage(ctx, packageRepo, fact.Name)
		if err != nil {
			return err
		}

		// The previous latest is captured before any version mutation so the
		// reconciliation below compares against the pre-import state.
		prevLatest, err := versionRepo.GetLatest(ctx, pkg.ID, arch.ID, source.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}

		version, created, err := s.resolveOrCreateVersion(ctx, versionRepo, pkg, arch.ID, source.ID, fact.Coordinate)
		if err != nil {
			return err
		}

		origActive, origLatest := version.Active, version.IsLatest
		version.Active = true

		metaChanged, err := s.syncMetadata(ctx, versionRepo, version.ID, fact)
		if err != nil {
			return err
		}
		locChanged, err := s.upsertEnglishLocalization(ctx, tx, version.ID, fact)
		if err != nil {
			return err
		}

		othersChanged, err := s.reconcileLatest(ctx, versionRepo, version, prevLatest, pkg.ID, arch.ID)
		if err != nil {
			return err
		}

		enriched := false
		if populateFromPayload && version.PayloadLength == nil && !models.IsSubordinateName(fact.Name) {
			iconStored := s.enrichFromPayload(ctx, tx, source, arch, pkg, version, fact)
			if iconStored {
				evictSupplement = pkg.SupplementID
			}
			enriched = iconStored || version.PayloadLength != nil
		}

		// A re-import that moved nothing writes nothing; the version row keeps
		// its stamp and import timestamp.
		changed := created || version.Active != origActive || version.IsLatest != origLatest ||
			metaChanged || locChanged || othersChanged || enriched
		if changed {
			now := s.now()
			version.ImportTimestamp = &now
			if err := versionRepo.Update(ctx, version); err != nil {
				return err
			}
			if err := packageRepo.Touch(ctx, pkg.ID, now); err != nil {
				return err
			}
		}

		s.logger.Info(ctx, "imported version",
			"pkg", fact.Name, "version", fact.Coordinate.String(),
			"arch", fact.ArchitectureCode, "source", sourceCode,
			"created", created, "changed", changed)
		return nil
	})
	if err != nil {
		return err
	}

	if evictSupplement != 0 {
		s.icons.Evict(evictSupplement)
	}
	return nil
}

func (s *ImporterService) resolveOrCreatePackage(ctx context.Context, repo packagesRepo, name string) (*models.Package, error) {
	pkg, err := repo.GetByName(ctx, name)
	if err == nil {
		return pkg, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}

	baseName := models.SupplementBaseName(name)
	supplement, err := repo.GetSupplementByBaseName(ctx, baseName)
	if errors.Is(err, common.ErrNotFound) {
		supplement, err = repo.CreateSupplement(ctx, baseName)
	}
	if err != nil {
		return nil, err
	}

	return repo.Create(ctx, &models.Package{
		Name:         name,
		Active:       true,
		SupplementID: supplement.ID,
	})
}

func (s *ImporterService) resolveOrCreateVersion(ctx context.Context, repo versionsRepo, pkg *models.Package,
	archID, sourceID int64, coordinate models.VersionCoordinate) (*models.PackageVersion, bool, error) {
	version, err := repo.GetForCoordinate(ctx, pkg.ID, archID, sourceID, coordinate)
	if err == nil {
		return version, false, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	version, err = repo.Create(ctx, &models.PackageVersion{
		PackageID:          pkg.ID,
		SupplementID:       pkg.SupplementID,
		ArchitectureID:     archID,
		RepositorySourceID: sourceID,
		Coordinate:         coordinate,
		Active:             true,
	})
	if err != nil {
		return nil, false, err
	}
	return version, true, nil
}

// syncMetadata makes the persisted copyright/license sets and home-page URL
// exactly match the fact: entries missing locally are added, entries the
// fact no longer carries are removed. Reports whether anything moved.
func (s *ImporterService) syncMetadata(ctx context.Context, repo versionsRepo, versionID int64, fact *ImportFact) (changed bool, err error) {
	existing, err := repo.ListCopyrights(ctx, versionID)
	if err != nil {
		return false, err
	}
	toAdd, toRemove := diffSets(fact.Copyrights, existing)
	changed = len(toAdd)+len(toRemove) > 0
	for _, body := range toAdd {
		if err := repo.AddCopyright(ctx, versionID, body); err != nil {
			return changed, err
		}
	}
	for _, body := range toRemove {
		if err := repo.RemoveCopyright(ctx, versionID, body); err != nil {
			return changed, err
		}
	}

	existing, err = repo.ListLicenses(ctx, versionID)
	if err != nil {
		return changed, err
	}
	toAdd, toRemove = diffSets(fact.Licenses, existing)
	changed = changed || len(toAdd)+len(toRemove) > 0
	for _, body := range toAdd {
		if err := repo.AddLicense(ctx, versionID, body); err != nil {
			return changed, err
		}
	}
	for _, body := range toRemove {
		if err := repo.RemoveLicense(ctx, versionID, body); err != nil {
			return changed, err
		}
	}

	current, err := repo.GetURL(ctx, versionID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return changed, err
	}
	if sameURL(current, fact.HomePageURL) {
		return changed, nil
	}
	return true, repo.ReplaceURL(ctx, versionID, fact.HomePageURL)
}

func sameURL(a, b *models.VersionURL) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.URL == b.URL && a.Name == b.Name
}

func (s *ImporterService) upsertEnglishLocalization(ctx context.Context, tx dbx.DBTX, versionID int64, fact *ImportFact) (changed bool, err error) {
	if fact.Summary == nil && fact.Description == nil {
		return false, nil
	}
	repo := s.repomanager.Localizations(tx)

	// Title is never supplied by the crawl path; an existing hand-edited
	// title is carried through the upsert.
	var title *string
	existing, err := repo.GetForOwner(ctx, models.LocalizationOwnerVersion, versionID, models.LanguageEnglish)
	if err == nil {
		title = existing.Title
		if eqStrPtr(existing.Summary, fact.Summary) && eqStrPtr(existing.Description, fact.Description) {
			return false, nil
		}
	} else if !errors.Is(err, common.ErrNotFound) {
		return false, err
	}

	return true, repo.Upsert(ctx, &models.Localization{
		OwnerType:    models.LocalizationOwnerVersion,
		OwnerID:      versionID,
		LanguageCode: models.LanguageEnglish,
		Title:        title,
		Summary:      fact.Summary,
		Description:  fact.Description,
	})
}

// reconcileLatest re-establishes the single-latest invariant for the
// version's (package, architecture, source) group. When the observed
// coordinate is older than the recorded latest the upstream scan is treated
// as authoritative: every active version of the same package+architecture
// strictly newer than the observed one is deactivated. Reports whether any
// other version row was written.
func (s *ImporterService) reconcileLatest(ctx context.Context, repo versionsRepo, version, prevLatest *models.PackageVersion, packageID, archID int64) (bool, error) {
	if prevLatest == nil {
		version.IsLatest = true
		return false, nil
	}

	switch cmp := version.Coordinate.Compare(prevLatest.Coordinate); {
	case cmp == 0:
		// Idempotent re-import; a distinct row that merely compares equal
		// (structurally different coordinate) must not steal the flag.
		if prevLatest.ID == version.ID {
			version.IsLatest = true
		}
		return false, nil

	case cmp > 0:
		if prevLatest.ID != version.ID {
			prevLatest.IsLatest = false
			if err := repo.Update(ctx, prevLatest); err != nil {
				return false, err
			}
			version.IsLatest = true
			return true, nil
		}
		version.IsLatest = true
		return false, nil

	default:
		// Regression: an older version is now reported as current.
		active, err := repo.ListActiveByPackageAndArchitecture(ctx, packageID, archID)
		if err != nil {
			return false, err
		}
		deactivated := false
		for _, other := range active {
			if other.ID == version.ID || other.Coordinate.Compare(version.Coordinate) <= 0 {
				continue
			}
			other.Active = false
			other.IsLatest = false
			if err := repo.Update(ctx, other); err != nil {
				return deactivated, err
			}
			deactivated = true
			s.logger.Info(ctx, "deactivated version withdrawn upstream",
				"version_id", other.ID, "version", other.Coordinate.String())
		}
		version.IsLatest = true
		return deactivated, nil
	}
}

// enrichFromPayload fetches the artifact to record its byte length and to
// pull an icon and the desktop-link marker out of its table of contents.
// Reports whether an icon was stored. Every failure is swallowed: the
// import must not depend on mirror reachability.
func (s *ImporterService) enrichFromPayload(ctx context.Context, tx dbx.DBTX, source *models.RepositorySource,
	arch *models.Architecture, pkg *models.Package, version *models.PackageVersion, fact *ImportFact) (iconStored bool) {

	uri := source.PackageURL(fact.Name, fact.Coordinate, arch.Code)

	path, err := filex.TempPayloadPath(s.tempDir, fact.Name)
	if err != nil {
		s.logger.Warn(ctx, "payload enrichment skipped", "pkg", fact.Name, "err", err)
		return false
	}
	defer os.Remove(path)

	if err := s.transfer.TransferToLocalFile(ctx, uri, path); err != nil {
		s.logger.Warn(ctx, "payload enrichment skipped", "pkg", fact.Name, "uri", uri, "err", err)
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn(ctx, "payload enrichment skipped", "pkg", fact.Name, "err", err)
		return false
	}
	length := info.Size()
	version.PayloadLength = &length

	details, err := s.inspector.Inspect(ctx, path)
	if err != nil {
		s.logger.Warn(ctx, "payload inspection failed", "pkg", fact.Name, "err", err)
		return false
	}

	if details.HasDesktopLink && !pkg.IsNativeDesktop {
		if err := s.repomanager.Packages(tx).SetNativeDesktop(ctx, pkg.ID, true); err != nil {
			s.logger.Warn(ctx, "recording desktop link failed", "pkg", fact.Name, "err", err)
		} else {
			pkg.IsNativeDesktop = true
		}
	}

	if len(details.IconData) == 0 {
		return false
	}
	if err := graphics.ValidateVectorIcon(details.IconData); err != nil {
		s.logger.Warn(ctx, "payload icon rejected", "pkg", fact.Name, "err", err)
		return false
	}
	mediaRepo := s.repomanager.Media(tx)
	err = mediaRepo.UpsertIcon(ctx, &models.IconRecord{
		SupplementID: pkg.SupplementID,
		MediaType:    models.MediaTypeHVIF,
		Data:         details.IconData,
	})
	if err != nil {
		s.logger.Warn(ctx, "storing payload icon failed", "pkg", fact.Name, "err", err)
		return false
	}
	if err := s.repomanager.Packages(tx).AddSupplementModification(ctx, pkg.SupplementID,
		fmt.Sprintf("imported icon from payload of %s %s", fact.Name, fact.Coordinate.String())); err != nil {
		s.logger.Warn(ctx, "recording icon modification failed", "pkg", fact.Name, "err", err)
	}
	return true
}

func eqStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// diffSets returns the entries of want missing from have and the entries of
// have missing from want.
func diffSets(want, have []string) (toAdd, toRemove []string) {
	haveSet := make(map[string]struct{}, len(have))
	for _, v := range have {
		haveSet[v] = struct{}{}
	}
	wantSet := make(map[string]struct{}, len(want))
	for _, v := range want {
		wantSet[v] = struct{}{}
		if _, ok := haveSet[v]; !ok {
			toAdd = append(toAdd, v)
		}
	}
	for _, v := range have {
		if _, ok := wantSet[v]; !ok {
			toRemove = append(toRemove, v)
		}
	}
	return toAdd, toRemove
}
