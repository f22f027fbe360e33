package batch

import (
	"context"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// Repository persists batch job records.
type Repository interface {
	SaveBatch(ctx context.Context, b *domain.BatchJob) error
	GetBatch(ctx context.Context, id string) (*domain.BatchJob, error)
}

// CatalogSource supplies the price catalog shared by every file in a batch.
type CatalogSource interface {
	Load(ctx context.Context) (domain.Catalog, error)
}

// CredentialChecker verifies a provider is usable before a batch starts.
type CredentialChecker interface {
	HealthCheck(ctx context.Context) error
}
