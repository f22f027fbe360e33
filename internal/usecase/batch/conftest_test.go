package batch

import (
	"context"
	"sync"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// memRepo is an in-memory batch store keeping copies so tests observe
// persisted state.
type memRepo struct {
	mu      sync.Mutex
	batches map[string]domain.BatchJob
}

func newMemRepo() *memRepo {
	return &memRepo{batches: make(map[string]domain.BatchJob)}
}

func (m *memRepo) SaveBatch(_ context.Context, b *domain.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	cp.FileNames = append([]string(nil), b.FileNames...)
	cp.Results = append([]domain.BatchFileResult(nil), b.Results...)
	m.batches[b.ID] = cp
	return nil
}

func (m *memRepo) GetBatch(_ context.Context, id string) (*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	cp := b
	return &cp, nil
}

// stubMatcher fails for file item sets whose first element is in failOn.
type stubMatcher struct {
	name   string
	failOn map[string]error
}

func (s *stubMatcher) Name() string { return s.name }

func (s *stubMatcher) MatchItems(
	_ context.Context, queries []string, _ domain.Catalog, onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	if len(queries) > 0 {
		if err, ok := s.failOn[queries[0]]; ok {
			return nil, err
		}
	}
	domain.ReportProgress(onProgress, 100, "matched")
	results := make([]domain.MatchResult, len(queries))
	for i := range queries {
		results[i] = domain.MatchResult{MatchedDescription: "concrete slab", Rate: 10, Confidence: 80}
	}
	return results, nil
}

type stubCatalog struct {
	err error
}

func (s *stubCatalog) Load(_ context.Context) (domain.Catalog, error) {
	if s.err != nil {
		return nil, s.err
	}
	return domain.Catalog{{Description: "concrete slab", Rate: 10}}, nil
}

type stubChecker struct {
	err error
}

func (s *stubChecker) HealthCheck(_ context.Context) error { return s.err }

func testService(repo Repository, m domain.Matcher, cat CatalogSource, checker CredentialChecker) *Service {
	return New(
		repo,
		map[string]domain.Matcher{"openai": m},
		map[string]CredentialChecker{"openai": checker},
		cat,
		nil,
	)
}
