package retrieval

import (
	"context"
	"fmt"

	"github.com/calque-ai/go-chronorag/pkg/query"
)

// Fetcher issues the single over-fetch query for a retrieval.
type Fetcher struct {
	index Index
}

// NewFetcher creates a fetcher over idx.
func NewFetcher(idx Index) *Fetcher {
	return &Fetcher{index: idx}
}

// Fetch returns up to fetchK candidates matching filter that carry an
// embedding. Rows without one are dropped as whole rows, so content, metadata,
// embedding and distance stay aligned. An empty result is not an error.
func (f *Fetcher) Fetch(ctx context.Context, vec []float32, filter *query.TemporalFilter, fetchK int) ([]Candidate, int, error) {
	if fetchK < 1 {
		fetchK = 1
	}
	rows, err := f.index.Query(ctx, IndexQuery{Vector: vec, TopK: fetchK, Filter: filter})
	if err != nil {
		return nil, 0, fmt.Errorf("query index: %w", err)
	}
	return Eligible(rows), len(rows), nil
}

// Eligible keeps the candidates that have a non-empty embedding.
func Eligible(rows []Candidate) []Candidate {
	out := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		if len(row.Embedding) == 0 {
			continue
		}
		out = append(out, row)
	}
	return out
}
