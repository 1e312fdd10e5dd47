package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/pkgdepot/pkgdepot/internal/common"
	"github.com/pkgdepot/pkgdepot/internal/dbx"
	"github.com/pkgdepot/pkgdepot/internal/logging"
	"github.com/pkgdepot/pkgdepot/internal/server/models"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/localizations"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/media"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/packages"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/sources"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/versions"
)

// fakeStore is an in-memory catalog backing the fake repositories. It
// mimics the optimistic-concurrency stamp behavior of the real version
// repository, including injectable forced conflicts.
type fakeStore struct {
	mu sync.Mutex

	architectures map[string]*models.Architecture
	repositories  map[int64]*models.Repository
	sources       map[string]*models.RepositorySource
	languages     map[string]*models.NaturalLanguage

	packagesByName map[string]*models.Package
	supplements    map[string]*models.PackageSupplement
	modifications  map[int64][]*models.SupplementModification

	versions   map[int64]*models.PackageVersion
	copyrights map[int64][]string
	licenses   map[int64][]string
	urls       map[int64]*models.VersionURL

	localizations map[localizationSource]*models.Localization

	icons       []*models.IconRecord
	screenshots []*models.ScreenshotRecord

	nextID int64

	// forcedConflicts makes the next N version updates fail with
	// ErrVersionConflict regardless of stamps.
	forcedConflicts int
	updateAttempts  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		architectures:  map[string]*models.Architecture{},
		repositories:   map[int64]*models.Repository{},
		sources:        map[string]*models.RepositorySource{},
		languages:      map[string]*models.NaturalLanguage{},
		packagesByName: map[string]*models.Package{},
		supplements:    map[string]*models.PackageSupplement{},
		modifications:  map[int64][]*models.SupplementModification{},
		versions:       map[int64]*models.PackageVersion{},
		copyrights:     map[int64][]string{},
		licenses:       map[int64][]string{},
		urls:           map[int64]*models.VersionURL{},
		localizations:  map[localizationSource]*models.Localization{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

// seedRefData installs one active repository/source pair and the x86_64
// architecture, the baseline most tests need.
func (f *fakeStore) seedRefData() (*models.RepositorySource, *models.Architecture) {
	f.mu.Lock()
	defer f.mu.Unlock()

	repo := &models.Repository{ID: f.id(), Code: "haikuports", Name: "HaikuPorts", Active: true}
	f.repositories[repo.ID] = repo

	source := &models.RepositorySource{
		ID: f.id(), RepositoryID: repo.ID, Code: "haikuports_x86_64",
		Active: true, BaseURL: "https://mirror.example.org/haikuports",
	}
	f.sources[source.Code] = source

	arch := &models.Architecture{ID: f.id(), Code: "x86_64"}
	f.architectures[arch.Code] = arch
	return source, arch
}

func (f *fakeStore) seedLanguages(codes ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		f.languages[code] = &models.NaturalLanguage{ID: f.id(), Code: code}
	}
}

func copyVersion(v *models.PackageVersion) *models.PackageVersion {
	c := *v
	return &c
}

func copyLocalization(l *models.Localization) *models.Localization {
	c := *l
	return &c
}

type fakeSources struct{ s *fakeStore }

func (r *fakeSources) GetRepository(_ context.Context, id int64) (*models.Repository, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	repo, ok := r.s.repositories[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *repo
	return &c, nil
}

func (r *fakeSources) GetSourceByCode(_ context.Context, code string) (*models.RepositorySource, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	source, ok := r.s.sources[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *source
	return &c, nil
}

func (r *fakeSources) GetArchitectureByCode(_ context.Context, code string) (*models.Architecture, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	arch, ok := r.s.architectures[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *arch
	return &c, nil
}

func (r *fakeSources) GetLanguageByCode(_ context.Context, code string) (*models.NaturalLanguage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	lang, ok := r.s.languages[code]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *lang
	return &c, nil
}

type fakePackages struct{ s *fakeStore }

func (r *fakePackages) GetByName(_ context.Context, name string) (*models.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	pkg, ok := r.s.packagesByName[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *pkg
	return &c, nil
}

func (r *fakePackages) Create(_ context.Context, pkg *models.Package) (*models.Package, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *pkg
	c.ID = r.s.id()
	r.s.packagesByName[c.Name] = &c
	out := c
	return &out, nil
}

func (r *fakePackages) SetNativeDesktop(_ context.Context, id int64, nativeDesktop bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pkg := range r.s.packagesByName {
		if pkg.ID == id {
			pkg.IsNativeDesktop = nativeDesktop
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakePackages) Touch(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, pkg := range r.s.packagesByName {
		if pkg.ID == id {
			pkg.ModifyTimestamp = at
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakePackages) GetSupplementByBaseName(_ context.Context, baseName string) (*models.PackageSupplement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	supplement, ok := r.s.supplements[baseName]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *supplement
	return &c, nil
}

func (r *fakePackages) CreateSupplement(_ context.Context, baseName string) (*models.PackageSupplement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	supplement := &models.PackageSupplement{ID: r.s.id(), BaseName: baseName}
	r.s.supplements[baseName] = supplement
	c := *supplement
	return &c, nil
}

func (r *fakePackages) TouchSupplement(_ context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, supplement := range r.s.supplements {
		if supplement.ID == id {
			supplement.ModifyTimestamp = at
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakePackages) AddSupplementModification(_ context.Context, supplementID int64, content string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.modifications[supplementID] = append(r.s.modifications[supplementID], &models.SupplementModification{
		ID: r.s.id(), SupplementID: supplementID, Content: content, CreateTimestamp: time.Now(),
	})
	return nil
}

func (r *fakePackages) ListSupplementModifications(_ context.Context, supplementID int64) ([]*models.SupplementModification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]*models.SupplementModification(nil), r.s.modifications[supplementID]...), nil
}

type fakeVersions struct{ s *fakeStore }

func (r *fakeVersions) GetByID(_ context.Context, id int64) (*models.PackageVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	v, ok := r.s.versions[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyVersion(v), nil
}

func (r *fakeVersions) GetForCoordinate(_ context.Context, packageID, architectureID, sourceID int64, coordinate models.VersionCoordinate) (*models.PackageVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.versions {
		if v.PackageID == packageID && v.ArchitectureID == architectureID &&
			v.RepositorySourceID == sourceID && v.Coordinate.Equal(coordinate) {
			return copyVersion(v), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeVersions) GetLatest(_ context.Context, packageID, architectureID, sourceID int64) (*models.PackageVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, v := range r.s.versions {
		if v.PackageID == packageID && v.ArchitectureID == architectureID &&
			v.RepositorySourceID == sourceID && v.IsLatest {
			return copyVersion(v), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeVersions) ListActiveByPackageAndArchitecture(_ context.Context, packageID, architectureID int64) ([]*models.PackageVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*models.PackageVersion
	for _, v := range r.s.versions {
		if v.PackageID == packageID && v.ArchitectureID == architectureID && v.Active {
			result = append(result, copyVersion(v))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeVersions) Create(_ context.Context, v *models.PackageVersion) (*models.PackageVersion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := copyVersion(v)
	c.ID = r.s.id()
	r.s.versions[c.ID] = c
	return copyVersion(c), nil
}

func (r *fakeVersions) Update(_ context.Context, v *models.PackageVersion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.updateAttempts++
	if r.s.forcedConflicts > 0 {
		r.s.forcedConflicts--
		return common.ErrVersionConflict
	}
	stored, ok := r.s.versions[v.ID]
	if !ok {
		return common.ErrNotFound
	}
	if stored.ModStamp != v.ModStamp {
		return common.ErrVersionConflict
	}
	c := copyVersion(v)
	c.ModStamp++
	r.s.versions[v.ID] = c
	v.ModStamp++
	return nil
}

func (r *fakeVersions) ListCopyrights(_ context.Context, versionID int64) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]string(nil), r.s.copyrights[versionID]...), nil
}

func (r *fakeVersions) AddCopyright(_ context.Context, versionID int64, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.copyrights[versionID] = append(r.s.copyrights[versionID], body)
	return nil
}

func (r *fakeVersions) RemoveCopyright(_ context.Context, versionID int64, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.copyrights[versionID] = removeString(r.s.copyrights[versionID], body)
	return nil
}

func (r *fakeVersions) ListLicenses(_ context.Context, versionID int64) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]string(nil), r.s.licenses[versionID]...), nil
}

func (r *fakeVersions) AddLicense(_ context.Context, versionID int64, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.licenses[versionID] = append(r.s.licenses[versionID], body)
	return nil
}

func (r *fakeVersions) RemoveLicense(_ context.Context, versionID int64, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.licenses[versionID] = removeString(r.s.licenses[versionID], body)
	return nil
}

func (r *fakeVersions) GetURL(_ context.Context, versionID int64) (*models.VersionURL, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.urls[versionID]
	if !ok {
		return nil, common.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *fakeVersions) ReplaceURL(_ context.Context, versionID int64, url *models.VersionURL) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if url == nil {
		delete(r.s.urls, versionID)
		return nil
	}
	c := *url
	r.s.urls[versionID] = &c
	return nil
}

func removeString(xs []string, body string) []string {
	out := xs[:0]
	for _, x := range xs {
		if x != body {
			out = append(out, x)
		}
	}
	return out
}

type fakeLocalizations struct{ s *fakeStore }

func (r *fakeLocalizations) GetForOwner(_ context.Context, ownerType string, ownerID int64, languageCode string) (*models.Localization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	loc, ok := r.s.localizations[localizationSource{ownerType, ownerID, languageCode}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyLocalization(loc), nil
}

func (r *fakeLocalizations) Upsert(_ context.Context, loc *models.Localization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := copyLocalization(loc)
	if c.ID == 0 {
		c.ID = r.s.id()
	}
	r.s.localizations[localizationSource{c.OwnerType, c.OwnerID, c.LanguageCode}] = c
	return nil
}

func (r *fakeLocalizations) ListForOwners(_ context.Context, ownerType string, ownerIDs []int64, languageCodes []string) ([]*models.Localization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*models.Localization
	for _, id := range ownerIDs {
		for _, lang := range languageCodes {
			if loc, ok := r.s.localizations[localizationSource{ownerType, id, lang}]; ok {
				result = append(result, copyLocalization(loc))
			}
		}
	}
	return result, nil
}

type fakeMedia struct{ s *fakeStore }

func copyIcon(rec *models.IconRecord) *models.IconRecord {
	c := *rec
	c.Data = append([]byte(nil), rec.Data...)
	return &c
}

func copyScreenshot(rec *models.ScreenshotRecord) *models.ScreenshotRecord {
	c := *rec
	c.Data = append([]byte(nil), rec.Data...)
	return &c
}

func eqSize(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (r *fakeMedia) ListIcons(_ context.Context, supplementID int64) ([]*models.IconRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*models.IconRecord
	for _, rec := range r.s.icons {
		if rec.SupplementID == supplementID {
			result = append(result, copyIcon(rec))
		}
	}
	return result, nil
}

func (r *fakeMedia) GetIcon(_ context.Context, supplementID int64, mediaType string, size *int) (*models.IconRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.icons {
		if rec.SupplementID == supplementID && rec.MediaType == mediaType && eqSize(rec.Size, size) {
			return copyIcon(rec), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeMedia) UpsertIcon(_ context.Context, rec *models.IconRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.icons {
		if existing.SupplementID == rec.SupplementID && existing.MediaType == rec.MediaType && eqSize(existing.Size, rec.Size) {
			c := copyIcon(rec)
			c.ID = existing.ID
			c.ModifyTimestamp = time.Now()
			r.s.icons[i] = c
			rec.ID = c.ID
			return nil
		}
	}
	c := copyIcon(rec)
	c.ID = r.s.id()
	c.ModifyTimestamp = time.Now()
	r.s.icons = append(r.s.icons, c)
	rec.ID = c.ID
	return nil
}

func (r *fakeMedia) DeleteIcons(_ context.Context, supplementID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var kept []*models.IconRecord
	var removed int64
	for _, rec := range r.s.icons {
		if rec.SupplementID == supplementID {
			removed++
			continue
		}
		kept = append(kept, rec)
	}
	r.s.icons = kept
	return removed, nil
}

func (r *fakeMedia) ListScreenshots(_ context.Context, supplementID int64) ([]*models.ScreenshotRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []*models.ScreenshotRecord
	for _, rec := range r.s.screenshots {
		if rec.SupplementID == supplementID {
			result = append(result, copyScreenshot(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Ordering < result[j].Ordering })
	return result, nil
}

func (r *fakeMedia) GetScreenshotByCode(_ context.Context, code string) (*models.ScreenshotRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.screenshots {
		if rec.Code == code {
			return copyScreenshot(rec), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeMedia) GetScreenshotByHash(_ context.Context, supplementID int64, hash string) (*models.ScreenshotRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.screenshots {
		if rec.SupplementID == supplementID && rec.Hash == hash {
			return copyScreenshot(rec), nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeMedia) MaxScreenshotOrdering(_ context.Context, supplementID int64) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	max := 0
	for _, rec := range r.s.screenshots {
		if rec.SupplementID == supplementID && rec.Ordering > max {
			max = rec.Ordering
		}
	}
	return max, nil
}

func (r *fakeMedia) CreateScreenshot(_ context.Context, rec *models.ScreenshotRecord) (*models.ScreenshotRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := copyScreenshot(rec)
	c.ID = r.s.id()
	c.CreateTimestamp = time.Now()
	r.s.screenshots = append(r.s.screenshots, c)
	return copyScreenshot(c), nil
}

func (r *fakeMedia) DeleteScreenshot(_ context.Context, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, rec := range r.s.screenshots {
		if rec.Code == code {
			r.s.screenshots = append(r.s.screenshots[:i], r.s.screenshots[i+1:]...)
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakeMedia) UpdateScreenshotOrdering(_ context.Context, id int64, ordering int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rec := range r.s.screenshots {
		if rec.ID == id {
			rec.Ordering = ordering
			return nil
		}
	}
	return common.ErrNotFound
}

// fakeRepoManager vends the fake repositories regardless of the DBTX, so
// services can run their transactions against a sqlmock database while the
// data lives in the fakeStore.
type fakeRepoManager struct{ s *fakeStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Sources(dbx.DBTX) sources.Repository          { return &fakeSources{m.s} }
func (m *fakeRepoManager) Packages(dbx.DBTX) packages.Repository        { return &fakePackages{m.s} }
func (m *fakeRepoManager) Versions(dbx.DBTX) versions.Repository        { return &fakeVersions{m.s} }
func (m *fakeRepoManager) Localizations(dbx.DBTX) localizations.Repository {
	return &fakeLocalizations{m.s}
}
func (m *fakeRepoManager) Media(dbx.DBTX) media.Repository { return &fakeMedia{m.s} }

// nopLogger discards everything.
type nopLogger struct{}

func (nopLogger) Debug(context.Context, string, ...any) {}
func (nopLogger) Info(context.Context, string, ...any)  {}
func (nopLogger) Warn(context.Context, string, ...any)  {}
func (nopLogger) Error(context.Context, string, ...any) {}

func (l nopLogger) With(...any) logging.Logger { return l }
