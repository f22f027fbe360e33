// Package match implements the single-provider matcher: normalize the
// catalog and queries, embed both sides through one provider, then rank
// every catalog entry per query by the combined cosine+Jaccard score.
package match

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	"github.com/kailas-cloud/boqmatch/internal/metrics"
	"github.com/kailas-cloud/boqmatch/internal/normalize"
	"github.com/kailas-cloud/boqmatch/internal/scoring"
)

// Progress windows per matching phase, in absolute percent.
const (
	progressNormalized = 10
	catalogWindowStart = 10
	catalogWindowEnd   = 60
	queryWindowStart   = 60
	queryWindowEnd     = 80
	progressScoring    = 80
)

// Service ranks a catalog against query items through one embedding provider.
type Service struct {
	embedder Embedder
	name     string
	logger   *zap.Logger
}

// New creates a single-provider matcher. The matcher name is the provider name.
func New(embedder Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{embedder: embedder, name: embedder.Provider(), logger: logger}
}

// Name implements domain.Matcher.
func (s *Service) Name() string { return s.name }

// MatchItems implements domain.Matcher. Catalog embeddings are fully
// resolved before query embeddings are requested; results come back in
// query order, one per query. Any provider failure aborts the whole call
// with no partial results.
func (s *Service) MatchItems(
	ctx context.Context,
	queries []string,
	catalog domain.Catalog,
	onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyCatalog)
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrEmptyQuerySet)
	}

	start := time.Now()
	results, err := s.matchItems(ctx, queries, catalog, onProgress)
	if err != nil {
		metrics.MatchRunsTotal.WithLabelValues(s.name, "error").Inc()
		return nil, err
	}

	metrics.MatchRunsTotal.WithLabelValues(s.name, "success").Inc()
	metrics.MatchRunDuration.WithLabelValues(s.name).Observe(time.Since(start).Seconds())
	return results, nil
}

func (s *Service) matchItems(
	ctx context.Context,
	queries []string,
	catalog domain.Catalog,
	onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	normCatalog := make([]string, len(catalog))
	catalogTokens := make([][]string, len(catalog))
	for i, entry := range catalog {
		normCatalog[i] = normalize.Normalize(entry.Description)
		catalogTokens[i] = normalize.SplitTokens(normCatalog[i])
	}

	normQueries := make([]string, len(queries))
	queryTokens := make([][]string, len(queries))
	for i, q := range queries {
		normQueries[i] = normalize.Normalize(q)
		queryTokens[i] = normalize.SplitTokens(normQueries[i])
	}

	domain.ReportProgress(onProgress, progressNormalized,
		fmt.Sprintf("normalized %d catalog entries and %d queries", len(catalog), len(queries)))

	catalogVecs, err := s.embedder.EmbedBatch(
		ctx, normCatalog, domain.RoleDocument,
		scaleProgress(onProgress, catalogWindowStart, catalogWindowEnd, "catalog"),
	)
	if err != nil {
		return nil, fmt.Errorf("embed catalog via %s: %w", s.name, err)
	}

	queryVecs, err := s.embedder.EmbedBatch(
		ctx, normQueries, domain.RoleQuery,
		scaleProgress(onProgress, queryWindowStart, queryWindowEnd, "queries"),
	)
	if err != nil {
		return nil, fmt.Errorf("embed queries via %s: %w", s.name, err)
	}

	scoring.NormalizeVectors(catalogVecs)
	scoring.NormalizeVectors(queryVecs)

	domain.ReportProgress(onProgress, progressScoring, "scoring catalog candidates")

	results := make([]domain.MatchResult, len(queries))
	for qi := range queries {
		results[qi] = s.bestMatch(queryVecs[qi], queryTokens[qi], catalog, catalogVecs, catalogTokens)
	}

	domain.ReportProgress(onProgress, 100, "matching complete")

	s.logger.Debug("match run finished",
		zap.String("matcher", s.name),
		zap.Int("queries", len(queries)),
		zap.Int("catalog_size", len(catalog)),
	)
	return results, nil
}

// bestMatch linearly scans the full catalog and keeps the arg-max combined
// score. Only a strictly greater score replaces the current best, so ties
// resolve to the first-encountered catalog entry.
func (s *Service) bestMatch(
	queryVec []float32,
	queryToks []string,
	catalog domain.Catalog,
	catalogVecs [][]float32,
	catalogTokens [][]string,
) domain.MatchResult {
	best := scoring.Score{Combined: -1}
	bestIdx := 0

	for ci := range catalog {
		cos := scoring.Cosine(queryVec, catalogVecs[ci])
		jac := scoring.Jaccard(queryToks, catalogTokens[ci])
		sc := scoring.New(cos, jac)
		if sc.Combined > best.Combined {
			best = sc
			bestIdx = ci
		}
	}

	return domain.MatchResult{
		MatchedDescription: catalog[bestIdx].Description,
		Rate:               catalog[bestIdx].Rate,
		Confidence:         scoring.Confidence(best.Combined),
		CosineScore:        best.Cosine,
		JaccardScore:       best.Jaccard,
	}
}

// scaleProgress maps a sub-operation's 0..100 progress into an absolute
// window, prefixing messages with the phase label.
func scaleProgress(fn domain.ProgressFunc, start, end int, phase string) domain.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(percent int, message string) {
		fn(start+percent*(end-start)/100, phase+": "+message)
	}
}
