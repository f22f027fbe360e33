package embcache

import (
	"context"
	"sync"

	"github.com/kailas-cloud/boqmatch/internal/db"
	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// mockStore is an in-memory KV store for cache tests.
type mockStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string][]byte)}
}

func (m *mockStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// mockEmbedder records which texts reach the provider.
type mockEmbedder struct {
	name  string
	calls [][]string
	err   error
}

func (m *mockEmbedder) Provider() string { return m.name }

func (m *mockEmbedder) EmbedBatch(
	_ context.Context, texts []string, _ domain.Role, onProgress domain.ProgressFunc,
) ([][]float32, error) {
	m.calls = append(m.calls, append([]string(nil), texts...))
	if m.err != nil {
		return nil, m.err
	}
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = []float32{float32(len(t)), 1, 2}
	}
	domain.ReportProgress(onProgress, 100, "embedded")
	return vecs, nil
}
