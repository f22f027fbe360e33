// Package embcache caches embedding vectors in the key-value store.
// Catalog text is re-embedded on every matching run; the cache turns those
// repeat embeddings into KV reads.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/db"
	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// CachedEmbedder is a caching decorator around a batch embedder. Vectors
// are keyed by provider, role, and text hash, so providers and roles never
// share entries.
type CachedEmbedder struct {
	inner      domain.BatchEmbedder
	store      store
	keyPrefix  string
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "provider" and "result"
// ("hit"/"miss"), passed explicitly.
func New(
	inner domain.BatchEmbedder,
	s store,
	keyPrefix string,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEmbedder{
		inner:      inner,
		store:      s,
		keyPrefix:  keyPrefix + "emb_cache:",
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Provider implements domain.BatchEmbedder.
func (c *CachedEmbedder) Provider() string { return c.inner.Provider() }

// EmbedBatch serves cached vectors and forwards only the misses to the
// inner embedder, preserving input order. Cache failures degrade to a
// miss, never to an error.
func (c *CachedEmbedder) EmbedBatch(
	ctx context.Context,
	texts []string,
	role domain.Role,
	onProgress domain.ProgressFunc,
) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int

	for i, text := range texts {
		if vec, ok := c.getFromCache(ctx, c.cacheKey(text, role)); ok {
			vectors[i] = vec
			c.incCache("hit")
			continue
		}
		c.incCache("miss")
		missTexts = append(missTexts, text)
		missIdx = append(missIdx, i)
	}

	if len(missTexts) == 0 {
		domain.ReportProgress(onProgress, 100, "all embeddings served from cache")
		return vectors, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts, role, onProgress)
	if err != nil {
		return nil, err
	}

	for j, vec := range fresh {
		vectors[missIdx[j]] = vec
		c.putToCache(ctx, c.cacheKey(missTexts[j], role), vec)
	}

	c.logger.Debug("embedding cache batch",
		zap.String("provider", c.inner.Provider()),
		zap.Int("texts", len(texts)),
		zap.Int("misses", len(missTexts)),
	)
	return vectors, nil
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(c.inner.Provider(), result).Inc()
	}
}

func (c *CachedEmbedder) cacheKey(text string, role domain.Role) string {
	h := sha256.Sum256([]byte(text))
	return c.keyPrefix + c.inner.Provider() + ":" + string(role) + ":" + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	vec, err := bytesToVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, key string, vec []float32) {
	data := vectorToCacheBytes(vec)
	if err := c.store.Set(ctx, key, data); err != nil {
		c.logger.Warn("Failed to cache embedding", zap.String("key", key), zap.Error(err))
	}
}

func vectorToCacheBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding cache data: len=%d (not multiple of 4)", len(data))
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, nil
}
