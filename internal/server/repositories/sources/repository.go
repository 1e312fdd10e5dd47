package sources

import (
	"context"

	"github.com/pkgdepot/pkgdepot/internal/server/models"
)

// Repository resolves reference entities: repositories, repository sources,
// architectures and natural languages. These rows are administered outside
// the catalog engine; the engine only reads them.
type Repository interface {
	GetRepository(ctx context.Context, id int64) (*models.Repository, error)
	GetSourceByCode(ctx context.Context, code string) (*models.RepositorySource, error)
	GetArchitectureByCode(ctx context.Context, code string) (*models.Architecture, error)
	GetLanguageByCode(ctx context.Context, code string) (*models.NaturalLanguage, error)
}
