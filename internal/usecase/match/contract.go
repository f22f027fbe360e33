package match

import (
	"context"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// Embedder vectorizes texts in provider-sized batches, order-preserving.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string, role domain.Role, onProgress domain.ProgressFunc) ([][]float32, error)
	Provider() string
}
