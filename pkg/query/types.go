// Package query turns a raw user question into an AnalyzedQuery: a date-free
// query string, an optional calendar date or date range, a query type, and
// the temporal filter derived from those dates.
package query

import "slices"

// Type classifies a question so the pipeline can pick a retrieval strategy.
type Type string

// Query types.
const (
	// BroadTemporal covers "what happened" questions spanning many documents.
	BroadTemporal Type = "broad_temporal"
	// SpecificFact covers questions answered by a single passage.
	SpecificFact Type = "specific_fact"
)

// ParseType maps model output to a known Type, defaulting to BroadTemporal.
func ParseType(s string) Type {
	switch Type(s) {
	case SpecificFact:
		return SpecificFact
	default:
		return BroadTemporal
	}
}

// DateRange holds calendar dates as YYYY-MM-DD strings, exactly as the model
// produced them. They are validated when the filter is built.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// AnalyzedQuery is the result of query analysis for one request.
//
// At most one of Date and DateRange is set. Values are treated as immutable:
// WithEmbedding and WithFilter return modified copies.
type AnalyzedQuery struct {
	CleanQuery string
	Date       string
	DateRange  *DateRange
	Type       Type
	Embedding  []float32
	Filter     *TemporalFilter
}

// HasDate reports whether any temporal constraint was extracted.
func (q AnalyzedQuery) HasDate() bool {
	return q.Date != "" || q.DateRange != nil
}

// WithEmbedding returns a copy of q carrying the query embedding.
func (q AnalyzedQuery) WithEmbedding(vec []float32) AnalyzedQuery {
	q.Embedding = slices.Clone(vec)
	return q
}

// WithFilter returns a copy of q carrying f.
func (q AnalyzedQuery) WithFilter(f *TemporalFilter) AnalyzedQuery {
	if f != nil {
		cp := *f
		f = &cp
	}
	q.Filter = f
	return q
}
