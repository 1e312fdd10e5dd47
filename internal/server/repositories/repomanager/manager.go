package repomanager

import (
	"context"
	"database/sql"

	"github.com/pkgdepot/pkgdepot/internal/dbx"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/localizations"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/media"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/packages"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/sources"
	"github.com/pkgdepot/pkgdepot/internal/server/repositories/versions"
)

// RepositoryManager vends repositories bound to a specific DBTX, so a
// service can compose several repositories inside one transaction by
// handing each the same *sql.Tx.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Sources(db dbx.DBTX) sources.Repository
	Packages(db dbx.DBTX) packages.Repository
	Versions(db dbx.DBTX) versions.Repository
	Localizations(db dbx.DBTX) localizations.Repository
	Media(db dbx.DBTX) media.Repository
}
