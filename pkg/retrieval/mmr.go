package retrieval

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is returned when embeddings of different lengths are compared.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// ErrInvalidLambda is returned for a trade-off weight outside [0,1].
var ErrInvalidLambda = errors.New("lambda must be in [0,1]")

// CosineSimilarity returns dot(a,b)/(|a||b|), or 0 when either norm is 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// RelevanceFromDistances normalizes distances into [0,1] relevance scores:
// 1 - d/max(d). When every distance is 0 all scores are 0.
func RelevanceFromDistances(distances []float64) []float64 {
	maxDist := 0.0
	for _, d := range distances {
		if d > maxDist {
			maxDist = d
		}
	}

	rel := make([]float64, len(distances))
	if maxDist == 0 {
		return rel
	}
	for i, d := range distances {
		rel[i] = 1 - math.Max(d, 0)/maxDist
	}
	return rel
}

// SelectMMR greedily picks up to k pool indices maximizing
//
//	lambda*relevance[i] - (1-lambda)*max(0, cos(embeddings[i], selected))
//
// The penalty is 0 while nothing is selected and never negative. Ties go to the lowest index and
// the returned order is selection order. The function is pure.
//
// Input: query embedding, candidate embeddings, relevance per candidate, k, lambda in [0,1]
// Output: selected indices, len = min(k, len(embeddings))
// Behavior: any embedding whose length differs from the query returns ErrDimensionMismatch
//
// Example:
//
//	idx, err := retrieval.SelectMMR(q, [][]float32{{1, 0}, {0.9, 0.1}, {0, 1}}, []float64{1, 0.889, 0}, 2, 0.5)
//	// idx == []int{0, 2}
func SelectMMR(queryVec []float32, embeddings [][]float32, relevance []float64, k int, lambda float64) ([]int, error) {
	if len(embeddings) != len(relevance) {
		return nil, fmt.Errorf("select mmr: %d embeddings but %d relevance scores", len(embeddings), len(relevance))
	}
	if math.IsNaN(lambda) || lambda < 0 || lambda > 1 {
		return nil, fmt.Errorf("select mmr: %w, got %v", ErrInvalidLambda, lambda)
	}
	for i, emb := range embeddings {
		if len(emb) != len(queryVec) {
			return nil, fmt.Errorf("select mmr: candidate %d: %w: %d vs query %d", i, ErrDimensionMismatch, len(emb), len(queryVec))
		}
	}

	n := len(embeddings)
	if k > n {
		k = n
	}
	if k <= 0 {
		return []int{}, nil
	}

	selected := make([]int, 0, k)
	taken := make([]bool, n)
	penalty := make([]float64, n)

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)
		for i := range n {
			if taken[i] {
				continue
			}
			score := lambda*relevance[i] - (1-lambda)*penalty[i]
			if best < 0 || score > bestScore {
				best, bestScore = i, score
			}
		}

		taken[best] = true
		selected = append(selected, best)

		for i := range n {
			if taken[i] {
				continue
			}
			sim, err := CosineSimilarity(embeddings[i], embeddings[best])
			if err != nil {
				return nil, err
			}
			penalty[i] = max(penalty[i], sim)
		}
	}
	return selected, nil
}
