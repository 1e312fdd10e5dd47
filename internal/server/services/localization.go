package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/repomanager"
)

// ResolvedText is the outcome of a localization resolution. Fields the
// fallback chain could not fill stay nil.
type ResolvedText struct {
	Title       *string
	Summary     *string
	Description *string
}

func (r *ResolvedText) empty() bool {
	return r.Title == nil && r.Summary == nil && r.Description == nil
}

// LocalizationService resolves a package version's localized text through
// the fallback chain: version-level in the requested language, then
// package-level in the requested language, then version-level English, then
// package-level English. Each of title, summary and description falls back
// independently.
type LocalizationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewLocalizationService(db *sql.DB, rm repomanager.RepositoryManager, logger logging.Logger) *LocalizationService {
	return &LocalizationService{db: db, repomanager: rm, logger: logger}
}

// localizationSource is one (owner type, owner id, language) cell of the
// fallback chain, in precedence order.
type localizationSource struct {
	ownerType    string
	ownerID      int64
	languageCode string
}

func fallbackChain(version *models.PackageVersion, languageCode string) []localizationSource {
	chain := []localizationSource{
		{models.LocalizationOwnerVersion, version.ID, languageCode},
		{models.LocalizationOwnerSupplement, version.SupplementID, languageCode},
	}
	if languageCode != models.LanguageEnglish {
		chain = append(chain,
			localizationSource{models.LocalizationOwnerVersion, version.ID, models.LanguageEnglish},
			localizationSource{models.LocalizationOwnerSupplement, version.SupplementID, models.LanguageEnglish},
		)
	}
	return chain
}

// Resolve fills title, summary and description for the version in the given
// language. The language must exist as a natural-language row; an unknown
// code fails with common.ErrNotFound instead of silently degrading to
// English. With a pattern, only values matching it are accepted; if the
// pattern filters everything out, resolution silently re-runs without it so
// match highlighting degrades to best-available text.
func (s *LocalizationService) Resolve(ctx context.Context, version *models.PackageVersion, languageCode string, pattern *regexp.Regexp) (*ResolvedText, error) {
	if _, err := s.repomanager.Sources(s.db).GetLanguageByCode(ctx, languageCode); err != nil {
		return nil, fmt.Errorf("natural language %q: %w", languageCode, err)
	}
	return s.resolve(ctx, version, languageCode, pattern)
}

func (s *LocalizationService) resolve(ctx context.Context, version *models.PackageVersion, languageCode string, pattern *regexp.Regexp) (*ResolvedText, error) {
	repo := s.repomanager.Localizations(s.db)

	resolved := &ResolvedText{}
	for _, src := range fallbackChain(version, languageCode) {
		loc, err := repo.GetForOwner(ctx, src.ownerType, src.ownerID, src.languageCode)
		if errors.Is(err, common.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		fillFromLocalization(resolved, loc, pattern)
	}

	if resolved.empty() && pattern != nil {
		return s.resolve(ctx, version, languageCode, nil)
	}
	return resolved, nil
}

// fillFromLocalization copies each still-absent field from loc, subject to
// the optional accept pattern.
func fillFromLocalization(resolved *ResolvedText, loc *models.Localization, pattern *regexp.Regexp) {
	accept := func(v *string) *string {
		if v == nil {
			return nil
		}
		if pattern != nil && !pattern.MatchString(*v) {
			return nil
		}
		return v
	}
	if resolved.Title == nil {
		resolved.Title = accept(loc.Title)
	}
	if resolved.Summary == nil {
		resolved.Summary = accept(loc.Summary)
	}
	if resolved.Description == nil {
		resolved.Description = accept(loc.Description)
	}
}

// BulkResolver serves Resolve calls for a fixed version set from one
// batched retrieval. Built for result-list rendering, where issuing four
// lookups per row would dominate the query count.
type BulkResolver struct {
	languageCode string
	versions     map[int64]*models.PackageVersion
	// rows is keyed by (owner type, owner id, language).
	rows map[localizationSource]*models.Localization
}

// NewBulkResolver pre-loads version-level and package-level rows for
// exactly the given versions, in the requested language plus English.
func (s *LocalizationService) NewBulkResolver(ctx context.Context, versions []*models.PackageVersion, languageCode string) (*BulkResolver, error) {
	if _, err := s.repomanager.Sources(s.db).GetLanguageByCode(ctx, languageCode); err != nil {
		return nil, fmt.Errorf("natural language %q: %w", languageCode, err)
	}
	repo := s.repomanager.Localizations(s.db)

	versionIDs := make([]int64, 0, len(versions))
	supplementIDs := make([]int64, 0, len(versions))
	byID := make(map[int64]*models.PackageVersion, len(versions))
	seenSupplements := make(map[int64]struct{}, len(versions))
	for _, v := range versions {
		versionIDs = append(versionIDs, v.ID)
		byID[v.ID] = v
		if _, ok := seenSupplements[v.SupplementID]; !ok {
			seenSupplements[v.SupplementID] = struct{}{}
			supplementIDs = append(supplementIDs, v.SupplementID)
		}
	}

	languages := []string{languageCode}
	if languageCode != models.LanguageEnglish {
		languages = append(languages, models.LanguageEnglish)
	}

	rows := make(map[localizationSource]*models.Localization)
	if len(versions) > 0 {
		versionRows, err := repo.ListForOwners(ctx, models.LocalizationOwnerVersion, versionIDs, languages)
		if err != nil {
			return nil, err
		}
		supplementRows, err := repo.ListForOwners(ctx, models.LocalizationOwnerSupplement, supplementIDs, languages)
		if err != nil {
			return nil, err
		}
		for _, loc := range append(versionRows, supplementRows...) {
			rows[localizationSource{loc.OwnerType, loc.OwnerID, loc.LanguageCode}] = loc
		}
	}

	return &BulkResolver{
		languageCode: languageCode,
		versions:     byID,
		rows:         rows,
	}, nil
}

// Resolve serves one version from the pre-loaded map. Versions outside the
// originally supplied set and pattern-driven requests are rejected: patterns
// need the per-row scanning path.
func (b *BulkResolver) Resolve(versionID int64, pattern *regexp.Regexp) (*ResolvedText, error) {
	if pattern != nil {
		return nil, fmt.Errorf("%w: bulk localization resolution does not support search patterns", common.ErrIllegalState)
	}
	version, ok := b.versions[versionID]
	if !ok {
		return nil, fmt.Errorf("%w: version %d was not pre-loaded", common.ErrIllegalState, versionID)
	}

	resolved := &ResolvedText{}
	for _, src := range fallbackChain(version, b.languageCode) {
		if loc, ok := b.rows[src]; ok {
			fillFromLocalization(resolved, loc, nil)
		}
	}
	return resolved, nil
}
