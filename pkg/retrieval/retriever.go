package retrieval

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/calque-ai/go-chronorag/pkg/logging"
	"github.com/calque-ai/go-chronorag/pkg/query"
)

// ErrNoEmbedding is returned when a query reaches a retriever without its embedding.
var ErrNoEmbedding = errors.New("query has no embedding")

// Retriever returns the documents for an analyzed query.
type Retriever interface {
	Retrieve(ctx context.Context, q query.AnalyzedQuery) ([]Document, error)
}

// Strategy enumerates the retriever implementations.
type Strategy string

// Strategies.
const (
	// StrategyMMR over-fetches and re-ranks for relevance and diversity.
	StrategyMMR Strategy = "mmr"
	// StrategyTopK returns the nearest k candidates as-is.
	StrategyTopK Strategy = "top_k"
)

// Options tune a retriever.
type Options struct {
	// TopK is the number of documents returned.
	TopK int
	// FetchMultiplier sizes the candidate pool as TopK*FetchMultiplier (MMR only).
	FetchMultiplier int
	// Lambda weighs relevance against diversity (MMR only).
	Lambda float64
	// Observer receives pool sizes after each retrieval; may be nil.
	Observer Observer
}

// Observer is notified of candidate pool sizes.
type Observer interface {
	ObservePool(strategy Strategy, fetched, eligible, selected int)
}

// DefaultOptions mirrors the pipeline defaults.
func DefaultOptions() Options {
	return Options{TopK: 4, FetchMultiplier: 4, Lambda: 0.5}
}

func (o Options) validate() error {
	if o.TopK < 1 {
		return fmt.Errorf("top k must be >= 1, got %d", o.TopK)
	}
	if o.FetchMultiplier < 1 {
		return fmt.Errorf("fetch multiplier must be >= 1, got %d", o.FetchMultiplier)
	}
	if o.Lambda < 0 || o.Lambda > 1 {
		return fmt.Errorf("%w, got %v", ErrInvalidLambda, o.Lambda)
	}
	return nil
}

// New builds the retriever for strategy.
func New(strategy Strategy, idx Index, opts Options) (Retriever, error) {
	switch strategy {
	case StrategyMMR:
		return NewMMRRetriever(idx, opts)
	case StrategyTopK:
		return NewTopKRetriever(idx, opts)
	default:
		return nil, fmt.Errorf("unknown retrieval strategy %q", strategy)
	}
}

// MMRRetriever over-fetches candidates and re-ranks them with SelectMMR.
type MMRRetriever struct {
	fetcher *Fetcher
	opts    Options
}

// NewMMRRetriever validates opts and creates the retriever.
func NewMMRRetriever(idx Index, opts Options) (*MMRRetriever, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &MMRRetriever{fetcher: NewFetcher(idx), opts: opts}, nil
}

// Retrieve fetches TopK*FetchMultiplier candidates under the query filter and
// selects TopK of them. When the eligible pool is no larger than TopK the pool
// is returned unchanged.
func (r *MMRRetriever) Retrieve(ctx context.Context, q query.AnalyzedQuery) ([]Document, error) {
	if len(q.Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	k := r.opts.TopK

	pool, fetched, err := r.fetcher.Fetch(ctx, q.Embedding, q.Filter, k*r.opts.FetchMultiplier)
	if err != nil {
		return nil, err
	}

	if len(pool) <= k {
		logging.LogDebug(ctx, "candidate pool within k, skipping mmr", "fetched", fetched, "eligible", len(pool), "k", k)
		r.observe(fetched, len(pool), len(pool))
		return toDocuments(pool), nil
	}

	embeddings := make([][]float32, len(pool))
	distances := make([]float64, len(pool))
	for i, c := range pool {
		embeddings[i] = c.Embedding
		distances[i] = c.Distance
	}

	picked, err := SelectMMR(q.Embedding, embeddings, RelevanceFromDistances(distances), k, r.opts.Lambda)
	if err != nil {
		return nil, err
	}

	docs := make([]Document, len(picked))
	for i, idx := range picked {
		docs[i] = pool[idx].Document()
	}
	logging.LogDebug(ctx, "mmr selection complete",
		"fetched", fetched, "eligible", len(pool), "selected", len(docs), "lambda", r.opts.Lambda)
	r.observe(fetched, len(pool), len(docs))
	return docs, nil
}

func (r *MMRRetriever) observe(fetched, eligible, selected int) {
	if r.opts.Observer != nil {
		r.opts.Observer.ObservePool(StrategyMMR, fetched, eligible, selected)
	}
}

// TopKRetriever returns the TopK nearest candidates by distance.
type TopKRetriever struct {
	index Index
	opts  Options
}

// NewTopKRetriever validates opts and creates the retriever.
func NewTopKRetriever(idx Index, opts Options) (*TopKRetriever, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &TopKRetriever{index: idx, opts: opts}, nil
}

// Retrieve runs one index query for TopK rows. Rows without embeddings are kept.
func (r *TopKRetriever) Retrieve(ctx context.Context, q query.AnalyzedQuery) ([]Document, error) {
	if len(q.Embedding) == 0 {
		return nil, ErrNoEmbedding
	}
	rows, err := r.index.Query(ctx, IndexQuery{Vector: q.Embedding, TopK: r.opts.TopK, Filter: q.Filter})
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	slices.SortStableFunc(rows, func(a, b Candidate) int { return cmp.Compare(a.Distance, b.Distance) })
	if len(rows) > r.opts.TopK {
		rows = rows[:r.opts.TopK]
	}
	if r.opts.Observer != nil {
		r.opts.Observer.ObservePool(StrategyTopK, len(rows), len(rows), len(rows))
	}
	return toDocuments(rows), nil
}

func toDocuments(rows []Candidate) []Document {
	docs := make([]Document, len(rows))
	for i, c := range rows {
		docs[i] = c.Document()
	}
	return docs
}
