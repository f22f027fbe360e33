// Package hybrid implements the consensus matcher: two single-provider
// matchers run concurrently over the same inputs and their rankings are
// reconciled per query item.
package hybrid

import (
	"context"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// Name identifies the hybrid matcher in job records and model selection.
const Name = "hybrid"

// Consensus weights: provider A is treated as broader-recall on domain
// jargon, provider B as higher-precision on complex phrasing. Fixed
// constants kept for behavioral compatibility, not call-time configurable.
const (
	weightA = 0.6
	weightB = 0.4
)

// Service reconciles two independent matcher rankings.
type Service struct {
	a      domain.Matcher
	b      domain.Matcher
	logger *zap.Logger
}

// New creates a hybrid matcher over providers A and B. A wins confidence ties.
func New(a, b domain.Matcher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{a: a, b: b, logger: logger}
}

// Name implements domain.Matcher.
func (s *Service) Name() string { return Name }

// MatchItems implements domain.Matcher. Both sub-matchers run concurrently;
// if either fails the hybrid call fails, with no single-provider fallback.
// Result order matches query order, computed only after both complete.
func (s *Service) MatchItems(
	ctx context.Context,
	queries []string,
	catalog domain.Catalog,
	onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	resA, resB, err := s.runBoth(ctx, queries, catalog, onProgress)
	if err != nil {
		return nil, err
	}

	results := make([]domain.MatchResult, len(queries))
	consensusCount := 0
	for i := range queries {
		results[i] = s.reconcile(resA[i], resB[i])
		if results[i].Source == domain.SourceConsensus {
			consensusCount++
		}
	}

	domain.ReportProgress(onProgress, 100, "hybrid reconciliation complete")

	s.logger.Debug("hybrid run finished",
		zap.Int("queries", len(queries)),
		zap.Int("consensus", consensusCount),
	)
	return results, nil
}

// Comparison reports both raw rankings plus the fraction of query items
// where the providers agreed on the same catalog entry. Used for offline
// quality evaluation, not in the matching hot path.
type Comparison struct {
	ResultsA  []domain.MatchResult
	ResultsB  []domain.MatchResult
	Agreement float64 // percent, 0..100
}

// Compare runs both sub-matchers and reports per-provider rankings with
// the agreement percentage.
func (s *Service) Compare(
	ctx context.Context, queries []string, catalog domain.Catalog,
) (Comparison, error) {
	resA, resB, err := s.runBoth(ctx, queries, catalog, nil)
	if err != nil {
		return Comparison{}, err
	}

	agreed := 0
	for i := range resA {
		if resA[i].MatchedDescription == resB[i].MatchedDescription {
			agreed++
		}
	}

	agreement := 0.0
	if len(resA) > 0 {
		agreement = float64(agreed) / float64(len(resA)) * 100
	}

	return Comparison{ResultsA: resA, ResultsB: resB, Agreement: agreement}, nil
}

// runBoth invokes both sub-matchers concurrently over the same inputs,
// forwarding sub-progress prefixed by provider name.
func (s *Service) runBoth(
	ctx context.Context,
	queries []string,
	catalog domain.Catalog,
	onProgress domain.ProgressFunc,
) ([]domain.MatchResult, []domain.MatchResult, error) {
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		resA, resB []domain.MatchResult
		errA, errB error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		resA, errA = s.a.MatchItems(ctx, queries, catalog, prefixProgress(onProgress, &mu, s.a.Name()))
	}()
	go func() {
		defer wg.Done()
		resB, errB = s.b.MatchItems(ctx, queries, catalog, prefixProgress(onProgress, &mu, s.b.Name()))
	}()
	wg.Wait()

	if errA != nil {
		return nil, nil, fmt.Errorf("matcher %s: %w", s.a.Name(), errA)
	}
	if errB != nil {
		return nil, nil, fmt.Errorf("matcher %s: %w", s.b.Name(), errB)
	}
	return resA, resB, nil
}

// reconcile merges one query's two results. Agreement on the catalog entry
// yields a weighted-average consensus; disagreement picks the higher
// normalized confidence, ties resolving to provider A.
func (s *Service) reconcile(a, b domain.MatchResult) domain.MatchResult {
	if a.MatchedDescription == b.MatchedDescription {
		combined := weightA*float64(a.Confidence)/100 + weightB*float64(b.Confidence)/100
		out := a
		out.Confidence = int(math.Round(combined * 100))
		out.Source = domain.SourceConsensus
		return out
	}

	if a.Confidence >= b.Confidence {
		out := a
		out.Source = s.a.Name()
		return out
	}
	out := b
	out.Source = s.b.Name()
	return out
}

// prefixProgress prefixes messages with the provider name and serializes
// invocations through mu. Both sub-matchers share the one mutex so the
// caller's callback never runs concurrently.
func prefixProgress(fn domain.ProgressFunc, mu *sync.Mutex, provider string) domain.ProgressFunc {
	if fn == nil {
		return nil
	}
	return func(percent int, message string) {
		mu.Lock()
		defer mu.Unlock()
		fn(percent, provider+": "+message)
	}
}
