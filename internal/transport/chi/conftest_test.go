package chi

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	batchuc "github.com/kailas-cloud/boqmatch/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/boqmatch/internal/usecase/health"
	hybriduc "github.com/kailas-cloud/boqmatch/internal/usecase/hybrid"
	jobuc "github.com/kailas-cloud/boqmatch/internal/usecase/job"
)

// memStore backs both job and batch repositories in tests.
type memStore struct {
	mu      sync.Mutex
	jobs    map[string]domain.Job
	batches map[string]domain.BatchJob
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    make(map[string]domain.Job),
		batches: make(map[string]domain.BatchJob),
	}
}

func (m *memStore) SaveJob(_ context.Context, j *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = *j
	return nil
}

func (m *memStore) GetJob(_ context.Context, id string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := j
	return &cp, nil
}

func (m *memStore) SaveBatch(_ context.Context, b *domain.BatchJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = *b
	return nil
}

func (m *memStore) GetBatch(_ context.Context, id string) (*domain.BatchJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	cp := b
	return &cp, nil
}

// stubMatcher matches everything to the first catalog entry.
type stubMatcher struct {
	name string
	err  error
}

func (s *stubMatcher) Name() string { return s.name }

func (s *stubMatcher) MatchItems(
	_ context.Context, queries []string, catalog domain.Catalog, onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	domain.ReportProgress(onProgress, 100, "matched")
	results := make([]domain.MatchResult, len(queries))
	for i := range queries {
		results[i] = domain.MatchResult{
			MatchedDescription: catalog[0].Description,
			Rate:               catalog[0].Rate,
			Confidence:         90,
		}
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

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

type testEnv struct {
	store  *memStore
	server *httptest.Server
}

// newTestEnv wires the full handler stack over in-memory storage and stub
// matchers. checkerErr poisons the credential pre-flight, pingErr the
// health check.
func newTestEnv(t *testing.T, checkerErr, pingErr error) *testEnv {
	t.Helper()

	store := newMemStore()
	cat := &stubCatalog{}
	a := &stubMatcher{name: "openai"}
	b := &stubMatcher{name: "cohere"}
	hybridSvc := hybriduc.New(a, b, zap.NewNop())

	matchers := map[string]domain.Matcher{
		"openai": a,
		"cohere": b,
		"hybrid": hybridSvc,
	}
	checkers := map[string]batchuc.CredentialChecker{
		"openai": &stubChecker{err: checkerErr},
		"cohere": &stubChecker{err: checkerErr},
	}

	jobSvc := jobuc.New(store, matchers, cat, 4, zap.NewNop())
	batchSvc := batchuc.New(store, matchers, checkers, cat, zap.NewNop())
	healthSvc := healthuc.New(&stubPinger{err: pingErr}, nil)

	srv := NewServer(jobSvc, batchSvc, hybridSvc, cat, healthSvc, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)

	return &testEnv{store: store, server: ts}
}
