package job

import (
	"context"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// Repository persists job records.
type Repository interface {
	SaveJob(ctx context.Context, j *domain.Job) error
	GetJob(ctx context.Context, id string) (*domain.Job, error)
}

// CatalogSource supplies the price catalog a job matches against.
type CatalogSource interface {
	Load(ctx context.Context) (domain.Catalog, error)
}
