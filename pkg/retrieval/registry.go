package retrieval

import (
	"errors"
	"fmt"

	"github.com/calque-ai/go-chronorag/pkg/query"
)

// ErrNoRetriever is returned when no retriever is registered for a query type
// and no default exists.
var ErrNoRetriever = errors.New("no retriever registered")

// Registry dispatches query types to retrievers. Unknown types use the
// retriever registered for query.BroadTemporal.
type Registry struct {
	byType map[query.Type]Retriever
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[query.Type]Retriever)}
}

// DefaultRegistry maps broad temporal questions to MMR and specific facts to top-k.
func DefaultRegistry(idx Index, opts Options) (*Registry, error) {
	mmr, err := NewMMRRetriever(idx, opts)
	if err != nil {
		return nil, err
	}
	topK, err := NewTopKRetriever(idx, opts)
	if err != nil {
		return nil, err
	}
	return NewRegistry().
		Register(query.BroadTemporal, mmr).
		Register(query.SpecificFact, topK), nil
}

// Register sets the retriever for t and returns the registry.
func (r *Registry) Register(t query.Type, retriever Retriever) *Registry {
	r.byType[t] = retriever
	return r
}

// For returns the retriever for t.
func (r *Registry) For(t query.Type) (Retriever, error) {
	if retriever, ok := r.byType[t]; ok {
		return retriever, nil
	}
	if retriever, ok := r.byType[query.BroadTemporal]; ok {
		return retriever, nil
	}
	return nil, fmt.Errorf("%w for query type %q", ErrNoRetriever, t)
}
