package hybrid

import (
	"context"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// stubMatcher returns canned results regardless of input. ticks controls
// how many progress callbacks fire per call (default one).
type stubMatcher struct {
	name    string
	results []domain.MatchResult
	err     error
	ticks   int
}

func (s *stubMatcher) Name() string { return s.name }

func (s *stubMatcher) MatchItems(
	_ context.Context, _ []string, _ domain.Catalog, onProgress domain.ProgressFunc,
) ([]domain.MatchResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	ticks := s.ticks
	if ticks <= 0 {
		ticks = 1
	}
	for i := 1; i <= ticks; i++ {
		domain.ReportProgress(onProgress, i*100/ticks, "done")
	}
	return s.results, nil
}
