package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	"github.com/kailas-cloud/boqmatch/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterMatchingMetrics()
	os.Exit(m.Run())
}

// embeddingData mirrors one item of the OpenAI embeddings response.
type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
}

func newTestEmbedder(t *testing.T, handler http.HandlerFunc, batchSize int) (*Embedder, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	emb := NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		Model:      "test-model",
		Dimensions: 4,
		BatchSize:  batchSize,
		BatchDelay: time.Millisecond,
		Logger:     zap.NewNop(),
	})
	return emb, server
}

func TestEmbedBatch_SingleBatch(t *testing.T) {
	emb, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		resp := embeddingResponse{Object: "list", Model: "test-model"}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{
				Object:    "embedding",
				Embedding: []float32{float32(i), 0, 0, 0},
				Index:     i,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}, 96)

	vecs, err := emb.EmbedBatch(context.Background(), []string{"a", "b"}, domain.RoleDocument, nil)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[1][0] != 1 {
		t.Errorf("vector order not preserved: %v", vecs[1])
	}
}

func TestEmbedBatch_SplitsIntoBatches(t *testing.T) {
	var calls int
	var progress []int

	emb, _ := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		calls++

		var req struct {
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) > 2 {
			t.Errorf("batch size exceeded: %d", len(req.Input))
		}

		resp := embeddingResponse{Object: "list", Model: "test-model"}
		for i := range req.Input {
			resp.Data = append(resp.Data, embeddingData{Embedding: []float32{1, 0, 0, 0}, Index: i})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}, 2)

	vecs, err := emb.EmbedBatch(
		context.Background(),
		[]string{"a", "b", "c", "d", "e"},
		domain.RoleQuery,
		func(percent int, _ string) { progress = append(progress, percent) },
	)
	if err != nil {
		t.Fatalf("EmbedBatch failed: %v", err)
	}
	if len(vecs) != 5 {
		t.Fatalf("expected 5 vectors, got %d", len(vecs))
	}
	if calls != 3 {
		t.Errorf("expected 3 batch calls, got %d", calls)
	}
	if len(progress) != 3 || progress[len(progress)-1] != 100 {
		t.Errorf("unexpected progress reports: %v", progress)
	}
}

func TestEmbedBatch_APIError(t *testing.T) {
	emb, _ := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limit exceeded", "type": "rate_limit"}}`))
	}, 96)

	_, err := emb.EmbedBatch(context.Background(), []string{"a"}, domain.RoleDocument, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Errorf("expected ErrEmbeddingProvider, got %v", err)
	}

	var provErr *domain.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if provErr.Status != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", provErr.Status)
	}
	if provErr.Provider != ProviderName {
		t.Errorf("expected provider %q, got %q", ProviderName, provErr.Provider)
	}
}

func TestHealthCheck_MissingKey(t *testing.T) {
	emb := NewEmbedder(&Config{Model: "test-model", Logger: zap.NewNop()})

	err := emb.HealthCheck(context.Background())
	if !errors.Is(err, domain.ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestEmbedBatch_Empty(t *testing.T) {
	emb, _ := newTestEmbedder(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for empty input")
	}, 96)

	vecs, err := emb.EmbedBatch(context.Background(), nil, domain.RoleDocument, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil, got %v", vecs)
	}
}
