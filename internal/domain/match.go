package domain

import "context"

// Match sources reported by the hybrid matcher.
const (
	// SourceConsensus marks a result where both providers picked the same entry.
	SourceConsensus = "consensus"
)

// MatchResult is one ranked catalog match for a single query item.
// Confidence is the combined score as an integer percentage:
// Confidence == round(100 * (0.85*cosine + 0.15*jaccard)).
type MatchResult struct {
	// InputDescription is the original query text, attached by the job and
	// batch processors after matching; matchers leave it empty.
	InputDescription   string  `json:"input_description,omitempty"`
	MatchedDescription string  `json:"matched_description"`
	Rate               float64 `json:"rate"`
	Confidence         int     `json:"confidence"`
	CosineScore        float64 `json:"cosine_score"`
	JaccardScore       float64 `json:"jaccard_score"`
	// Source is the provider attribution; populated only by the hybrid matcher.
	Source string `json:"source,omitempty"`
}

// ProgressFunc receives progress notifications in the 0..100 range.
// Implementations must tolerate a nil callback via ReportProgress.
type ProgressFunc func(percent int, message string)

// ReportProgress invokes fn when non-nil.
func ReportProgress(fn ProgressFunc, percent int, message string) {
	if fn != nil {
		fn(percent, message)
	}
}

// Matcher ranks a catalog against query items. Result order matches query
// order; one result per query. Implementations abort the whole call on
// provider failure and return no partial results.
type Matcher interface {
	MatchItems(ctx context.Context, queries []string, catalog Catalog, onProgress ProgressFunc) ([]MatchResult, error)
	Name() string
}
