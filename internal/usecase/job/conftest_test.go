package job

import (
	"context"
	"sync"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// memRepo is an in-memory job store keeping deep-enough copies so tests
// observe persisted state, not shared pointers.
type memRepo struct {
	mu      sync.Mutex
	jobs    map[string]domain.Job
	saveErr error
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: make(map[string]domain.Job)}
}

func (m *memRepo) SaveJob(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *j
	cp.Logs = append([]string(nil), j.Logs...)
	cp.Results = append([]domain.MatchResult(nil), j.Results...)
	m.jobs[j.ID] = cp
	return nil
}

func (m *memRepo) GetJob(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := j
	return &cp, nil
}

// stubMatcher returns one result per query, optionally failing, and can
// notify on each invocation for ordering assertions. errAfterProgress
// reports that percentage before returning err, emulating a provider
// that dies mid-run.
type stubMatcher struct {
	name             string
	err              error
	errAfterProgress int
	onCall           func(queries []string)
}

func (s *stubMatcher) Name() string { return s.name }

func (s *stubMatcher) MatchItems(
	_ context.Context, queries []string, _ domain.Catalog, onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	if s.onCall != nil {
		s.onCall(queries)
	}
	if s.err != nil {
		if s.errAfterProgress > 0 {
			domain.ReportProgress(onProgress, s.errAfterProgress, "embedding")
		}
		return nil, s.err
	}
	domain.ReportProgress(onProgress, 50, "embedding")
	results := make([]domain.MatchResult, len(queries))
	for i := range queries {
		results[i] = domain.MatchResult{MatchedDescription: "concrete slab", Rate: 10, Confidence: 90}
	}
	domain.ReportProgress(onProgress, 100, "done")
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

func testService(repo Repository, m domain.Matcher, cat CatalogSource, backlog int) *Service {
	return New(repo, map[string]domain.Matcher{"openai": m}, cat, backlog, nil)
}
