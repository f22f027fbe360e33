package domain

import "context"

// Role selects the embedding mode for asymmetric search providers.
type Role string

const (
	// RoleDocument marks catalog-side text.
	RoleDocument Role = "document"
	// RoleQuery marks inquiry-side text.
	RoleQuery Role = "query"
)

// BatchEmbedder vectorizes texts in provider-sized batches, order-preserving,
// one vector per input. onProgress receives completed/total batch progress
// scaled into the caller-supplied window.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, role Role, onProgress ProgressFunc) ([][]float32, error)
	Provider() string
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
