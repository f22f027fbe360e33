package health

import "context"

// DBPinger checks that the job store is reachable.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker verifies an embedding provider's credentials and
// reachability with a minimal request.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
