package match

import (
	"context"
	"hash/fnv"

	"github.com/kailas-cloud/boqmatch/internal/domain"
)

// stubEmbedder maps identical strings to identical deterministic vectors,
// recording the role of every call.
type stubEmbedder struct {
	name       string
	roleCalls  []domain.Role
	err        error
	failOnRole domain.Role
}

func (s *stubEmbedder) Provider() string { return s.name }

func (s *stubEmbedder) EmbedBatch(
	_ context.Context, texts []string, role domain.Role, onProgress domain.ProgressFunc,
) ([][]float32, error) {
	s.roleCalls = append(s.roleCalls, role)
	if s.err != nil && (s.failOnRole == "" || s.failOnRole == role) {
		return nil, s.err
	}

	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = stubVector(t)
	}
	domain.ReportProgress(onProgress, 100, "embedded")
	return vecs, nil
}

// stubVector derives a pseudo-random but deterministic vector from text.
func stubVector(text string) []float32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum32()

	vec := make([]float32, 8)
	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/999 + 0.001
	}
	return vec
}

func testCatalog() domain.Catalog {
	return domain.Catalog{
		{Description: "concrete foundation pour", Rate: 100},
		{Description: "brickwork wall construction", Rate: 55.5},
		{Description: "excavation of trench", Rate: 30},
		{Description: "supply and install door frame", Rate: 210},
	}
}
