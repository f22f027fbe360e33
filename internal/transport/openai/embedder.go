// Package openai implements the provider A embedding client on the
// OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	"github.com/kailas-cloud/boqmatch/internal/metrics"
)

// ProviderName identifies this provider in results and error messages.
const ProviderName = "openai"

const (
	defaultBatchSize  = 96
	defaultBatchDelay = 100 * time.Millisecond
)

// Embedder is a batched embedding client for the OpenAI-compatible API.
type Embedder struct {
	client     *openai.Client
	apiKey     string
	model      openai.EmbeddingModel
	dimensions int
	batchSize  int
	batchDelay time.Duration
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
	Logger     *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding client.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	batchDelay := cfg.BatchDelay
	if batchDelay <= 0 {
		batchDelay = defaultBatchDelay
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		apiKey:     cfg.APIKey,
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		batchSize:  batchSize,
		batchDelay: batchDelay,
		logger:     logger,
	}
}

// Provider implements domain.BatchEmbedder.
func (e *Embedder) Provider() string { return ProviderName }

// EmbedBatch implements domain.BatchEmbedder. Input is split into
// provider-sized batches with a pacing delay between calls; vectors come
// back in input order, one per text.
//
// The OpenAI API has no asymmetric document/query embedding mode, so both
// roles embed identically. This deviates from providers that distinguish
// input types; identical texts therefore always produce identical vectors.
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

		vecs, err := e.embedOne(ctx, batch)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)

		metrics.EmbeddingTextsTotal.
			WithLabelValues(ProviderName, string(e.model), string(role)).
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

// embedOne issues a single CreateEmbeddings call for one batch.
func (e *Embedder) embedOne(ctx context.Context, batch []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:          batch,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(ProviderName, string(e.model), "api_error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) != len(batch) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, string(e.model), "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(ProviderName, string(e.model), "short_response").Inc()
		return nil, domain.NewProviderError(ProviderName, 0,
			fmt.Sprintf("expected %d embeddings, got %d", len(batch), len(resp.Data)))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(ProviderName, string(e.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(ProviderName, string(e.model)).Observe(duration.Seconds())

	// Match vectors back to inputs by batch-relative index.
	vecs := make([][]float32, len(batch))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(batch) {
			return nil, domain.NewProviderError(ProviderName, 0,
				fmt.Sprintf("embedding index %d out of range", d.Index))
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

// HealthCheck verifies credentials are present, then API availability via
// ListModels (free endpoint). A missing key is a configuration problem,
// rejected before any remote call.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if e.apiKey == "" {
		return fmt.Errorf("openai api key not configured: %w", domain.ErrMissingCredentials)
	}
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProvider, carrying the
// HTTP status and provider payload where available.
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return domain.NewProviderError(ProviderName, reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(ProviderName, apiErr.HTTPStatusCode, apiErr.Message)
	}

	return domain.NewProviderError(ProviderName, 0, err.Error())
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
