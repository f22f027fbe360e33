package match

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/boqmatch/internal/domain"
	"github.com/kailas-cloud/boqmatch/internal/metrics"
	"github.com/kailas-cloud/boqmatch/internal/normalize"
	"github.com/kailas-cloud/boqmatch/internal/scoring"
)

func TestMain(m *testing.M) {
	metrics.RegisterMatchingMetrics()
	os.Exit(m.Run())
}

func TestMatchItems_ExactTextRoundTrip(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	catalog := domain.Catalog{{Description: "concrete foundation pour", Rate: 100}}
	results, err := svc.MatchItems(context.Background(), []string{"Concrete Foundation Pour"}, catalog, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}

	r := results[0]
	if r.MatchedDescription != "concrete foundation pour" {
		t.Errorf("unexpected match: %q", r.MatchedDescription)
	}
	if r.Rate != 100 {
		t.Errorf("unexpected rate: %f", r.Rate)
	}
	// Identical normalized text: identical stub vectors, full token overlap.
	if r.Confidence != 100 {
		t.Errorf("expected confidence 100, got %d", r.Confidence)
	}
	if math.Abs(r.CosineScore-1) > 1e-6 {
		t.Errorf("expected cosine 1, got %f", r.CosineScore)
	}
	if math.Abs(r.JaccardScore-1) > 1e-9 {
		t.Errorf("expected jaccard 1, got %f", r.JaccardScore)
	}
}

func TestMatchItems_OrderPreservation(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	queries := []string{
		"trench excavation",
		"concrete foundation pour",
		"brick wall",
	}
	results, err := svc.MatchItems(context.Background(), queries, testCatalog(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != len(queries) {
		t.Fatalf("expected %d results, got %d", len(queries), len(results))
	}
	if results[1].MatchedDescription != "concrete foundation pour" {
		t.Errorf("result 1 does not correspond to query 1: %q", results[1].MatchedDescription)
	}
}

func TestMatchItems_ConfidenceInvariant(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	queries := []string{"door installation", "bulk excavations", "cement pour"}
	results, err := svc.MatchItems(context.Background(), queries, testCatalog(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, r := range results {
		if r.Confidence < 0 || r.Confidence > 100 {
			t.Errorf("result %d: confidence out of bounds: %d", i, r.Confidence)
		}
		want := int(math.Round(100 * (0.85*r.CosineScore + 0.15*r.JaccardScore)))
		if r.Confidence != want {
			t.Errorf("result %d: confidence %d != round(100*combined) %d", i, r.Confidence, want)
		}
	}
}

// TestMatchItems_BestMatchOptimality brute-force re-scans the catalog and
// verifies no entry beats the selected combined score.
func TestMatchItems_BestMatchOptimality(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	catalog := testCatalog()
	queries := []string{"pour foundations", "install door", "wall brickwork", "dig trench"}

	results, err := svc.MatchItems(context.Background(), queries, catalog, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Recompute all pairwise combined scores with the same stub pipeline.
	catalogVecs := make([][]float32, len(catalog))
	catalogToks := make([][]string, len(catalog))
	for i, e := range catalog {
		norm := normalize.Normalize(e.Description)
		catalogVecs[i] = stubVector(norm)
		catalogToks[i] = normalize.SplitTokens(norm)
	}
	scoring.NormalizeVectors(catalogVecs)

	for qi, q := range queries {
		norm := normalize.Normalize(q)
		qv := [][]float32{stubVector(norm)}
		scoring.NormalizeVectors(qv)
		qt := normalize.SplitTokens(norm)

		selected := -1.0
		for ci := range catalog {
			combined := scoring.Combined(
				scoring.Cosine(qv[0], catalogVecs[ci]),
				scoring.Jaccard(qt, catalogToks[ci]),
			)
			if catalog[ci].Description == results[qi].MatchedDescription && combined > selected {
				selected = combined
			}
		}
		for ci := range catalog {
			combined := scoring.Combined(
				scoring.Cosine(qv[0], catalogVecs[ci]),
				scoring.Jaccard(qt, catalogToks[ci]),
			)
			if combined > selected+1e-9 {
				t.Errorf("query %d: entry %q scores %f, beats selected %q at %f",
					qi, catalog[ci].Description, combined, results[qi].MatchedDescription, selected)
			}
		}
	}
}

func TestMatchItems_TieBreakFirstEntry(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	// Identical descriptions: identical scores, first index must win.
	catalog := domain.Catalog{
		{Description: "concrete slab", Rate: 10},
		{Description: "concrete slab", Rate: 20},
	}
	results, err := svc.MatchItems(context.Background(), []string{"concrete slab"}, catalog, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Rate != 10 {
		t.Errorf("tie must resolve to first catalog entry, got rate %f", results[0].Rate)
	}
}

func TestMatchItems_EmptyCatalog(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	_, err := svc.MatchItems(context.Background(), []string{"anything"}, nil, nil)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !errors.Is(err, domain.ErrEmptyCatalog) {
		t.Fatalf("expected ErrEmptyCatalog, got %v", err)
	}
	if len(emb.roleCalls) != 0 {
		t.Error("embedding must not be attempted for an empty catalog")
	}
}

func TestMatchItems_EmptyQueries(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	_, err := svc.MatchItems(context.Background(), nil, testCatalog(), nil)
	if !errors.Is(err, domain.ErrEmptyQuerySet) {
		t.Fatalf("expected ErrEmptyQuerySet, got %v", err)
	}
	if len(emb.roleCalls) != 0 {
		t.Error("embedding must not be attempted for an empty query set")
	}
}

func TestMatchItems_CatalogEmbeddedBeforeQueries(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	_, err := svc.MatchItems(context.Background(), []string{"brick"}, testCatalog(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(emb.roleCalls) != 2 ||
		emb.roleCalls[0] != domain.RoleDocument ||
		emb.roleCalls[1] != domain.RoleQuery {
		t.Errorf("unexpected embed call order: %v", emb.roleCalls)
	}
}

func TestMatchItems_ProviderFailureAborts(t *testing.T) {
	provErr := domain.NewProviderError("openai", 503, "overloaded")
	emb := &stubEmbedder{name: "openai", err: provErr, failOnRole: domain.RoleQuery}
	svc := New(emb, zap.NewNop())

	results, err := svc.MatchItems(context.Background(), []string{"brick"}, testCatalog(), nil)
	if results != nil {
		t.Error("no partial results expected on provider failure")
	}
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
}

func TestMatchItems_ProgressReachesHundred(t *testing.T) {
	emb := &stubEmbedder{name: "openai"}
	svc := New(emb, zap.NewNop())

	var percents []int
	_, err := svc.MatchItems(context.Background(), []string{"brick"}, testCatalog(),
		func(percent int, _ string) { percents = append(percents, percent) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(percents) == 0 || percents[len(percents)-1] != 100 {
		t.Errorf("expected final progress 100, got %v", percents)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Errorf("progress must be monotonic: %v", percents)
		}
	}
}
