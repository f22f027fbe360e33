// Package scoring computes the combined similarity score used to rank
// catalog entries against query items: embedding cosine similarity blended
// with lexical Jaccard overlap.
package scoring

import "math"

// Fixed blend weights. Kept as constants for behavioral compatibility with
// the calibrated confidence scale; not configurable at call time.
const (
	CosineWeight  = 0.85
	JaccardWeight = 0.15
)

// Score holds the components of one query/catalog comparison.
type Score struct {
	Cosine   float64
	Jaccard  float64
	Combined float64
}

// NormalizeVectors L2-normalizes every vector in place. Zero vectors are
// left untouched. Called once per embedding set before any pairwise scoring.
func NormalizeVectors(vecs [][]float32) {
	for _, v := range vecs {
		var sum float32
		for _, x := range v {
			sum += x * x
		}
		if sum == 0 {
			continue
		}
		mag := float32(math.Sqrt(float64(sum)))
		for i := range v {
			v[i] /= mag
		}
	}
}

// Cosine returns the dot product of two unit vectors. Inputs must already be
// L2-normalized; mismatched lengths score over the shorter prefix.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

// Jaccard returns set overlap between two token lists: |A∩B| / |A∪B|,
// 0 when the union is empty.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}

	union := make(map[string]struct{}, len(a)+len(b))
	for t := range setA {
		union[t] = struct{}{}
	}

	intersection := 0
	for _, t := range b {
		if _, ok := union[t]; !ok {
			union[t] = struct{}{}
			continue
		}
		if _, ok := setA[t]; ok {
			delete(setA, t)
			intersection++
		}
	}

	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

// Combined blends cosine and Jaccard with the fixed weights.
func Combined(cosine, jaccard float64) float64 {
	return CosineWeight*cosine + JaccardWeight*jaccard
}

// New computes all score components for one comparison.
func New(cosine, jaccard float64) Score {
	return Score{Cosine: cosine, Jaccard: jaccard, Combined: Combined(cosine, jaccard)}
}

// Confidence converts a combined score to the 0-100 integer scale.
func Confidence(combined float64) int {
	c := int(math.Round(combined * 100))
	if c < 0 {
		return 0
	}
	if c > 100 {
		return 100
	}
	return c
}
