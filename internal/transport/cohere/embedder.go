// Package cohere implements the provider B embedding client against the
// Cohere v2 embed API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	"github.com/kailas-cloud/boqmatch/internal/metrics"
)

// ProviderName identifies this provider in results and error messages.
const ProviderName = "cohere"

const defaultBaseURL = "https://api.cohere.com/v2/embed"

const (
	defaultBatchSize  = 96
	defaultBatchDelay = 100 * time.Millisecond
)

// Embedder is a batched embedding client for the Cohere v2 embed endpoint.
type Embedder struct {
	apiKey     string
	baseURL    string
	model      string
	dimensions int
	batchSize  int
	batchDelay time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	BatchSize  int
	BatchDelay time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewEmbedder creates a Cohere embedding client.
func NewEmbedder(cfg *Config) *Embedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchDelay := cfg.BatchDelay
	if batchDelay <= 0 {
		batchDelay = defaultBatchDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		client:     client,
		logger:     logger,
	}
}

// Provider implements domain.BatchEmbedder.
func (e *Embedder) Provider() string { return ProviderName }

// embedRequest is the Cohere v2 embed wire format.
type embedRequest struct {
	Model           string   `json:"model"`
	Texts           []string `json:"texts"`
	InputType       string   `json:"input_type"`
	EmbeddingTypes  []string `json:"embedding_types"`
	OutputDimension int      `json:"output_dimension,omitempty"`
}

type embedResponse struct {
	Embeddings struct {
		Float [][]float32 `json:"float"`
	} `json:"embeddings"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// inputType maps the role onto Cohere's asymmetric embedding modes.
func inputType(role domain.Role) string {
	if role == domain.RoleQuery {
		return "search_query"
	}
	return "search_document"
}

// EmbedBatch implements domain.BatchEmbedder. Input is split into
// provider-sized batches with a pacing delay between calls; vectors come
// back in input order, one per text.
func (e *Embedder) EmbedBatch(
	ctx context.Context, texts []string, role domain.Role, onProgress domain.ProgressFunc,
) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	totalBatches := (len(texts) + e.batchSize - 1) / e.batchSize

	for b := 0; b < totalBatches; b++ {
		start := b * e.batchSize
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		vecs, err := e.embedOne(ctx, batch, role)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)

		metrics.EmbeddingTextsTotal.
			WithLabelValues(ProviderName, e.model, string(role)).
			Add(float64(len(batch)))

		domain.ReportProgress(onProgress,
			(b+1)*100/totalBatches,
			fmt.Sprintf("embedded batch %d/%d", b+1, totalBatches),
		)

		// Pace requests between batches to respect provider rate limits.
		if b+1 < totalBatches {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("embedding canceled: %w", ctx.Err())
			case <-time.After(e.batchDelay):
			}
		}
	}

	return out, nil
}

// embedOne issues a single embed call for one batch.
func (e *Embedder) embedOne(ctx context.Context, batch []string, role domain.Role) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{
		Model:           e.model,
		Texts:           batch,
		InputType:       inputType(role),
		EmbeddingTypes:  []string{"float"},
		OutputDimension: e.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(ProviderName, e.model, "transport_error").Inc()
		return nil, domain.NewProviderError(ProviderName, 0, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(ProviderName, e.model, "api_error").Inc()
		return nil, domain.NewProviderError(ProviderName, resp.StatusCode, readErrorMessage(resp.Body))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, e.model, "error").Inc()
		return nil, domain.NewProviderError(ProviderName, resp.StatusCode, "decode response: "+err.Error())
	}

	if len(result.Embeddings.Float) != len(batch) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(ProviderName, e.model, "short_response").Inc()
		return nil, domain.NewProviderError(ProviderName, resp.StatusCode,
			fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(result.Embeddings.Float)))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(ProviderName, e.model).Observe(duration.Seconds())

	return result.Embeddings.Float, nil
}

// HealthCheck verifies credentials are present. The embed endpoint is the
// only one this client talks to, so there is no free call to probe.
func (e *Embedder) HealthCheck(_ context.Context) error {
	if e.apiKey == "" {
		return fmt.Errorf("cohere api key not configured: %w", domain.ErrMissingCredentials)
	}
	return nil
}

// readErrorMessage extracts the provider-reported message from an error body.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return "unreadable error body"
	}
	var parsed errorResponse
	if json.Unmarshal(raw, &parsed) == nil && parsed.Message != "" {
		return parsed.Message
	}
	return string(raw)
}
