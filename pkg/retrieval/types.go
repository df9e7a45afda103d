// Package retrieval selects the passages handed to the answer prompt.
//
// An Index returns over-fetched candidates with their embeddings and cosine
// distances in one round trip; a Retriever strategy turns those candidates
// into an ordered, bounded list of Documents. The default strategy for broad
// temporal questions re-ranks the pool with Maximal Marginal Relevance.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"maps"
	"strconv"

	"github.com/calque-ai/go-chronorag/pkg/query"
)

// Metadata keys written at ingestion time.
const (
	MetaSource     = "source"
	MetaTitle      = "title"
	MetaPageID     = "page_id"
	MetaChunkIndex = "chunk_index"
	MetaDateTS     = query.DateField
)

// Document is a selected passage returned to the orchestrator.
type Document struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Candidate is one row of an index query.
//
// Embedding may be nil when the backend could not return it; such rows are
// not eligible for diversity ranking. Distance is a cosine distance, >= 0,
// smaller meaning closer.
type Candidate struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
	Distance  float64
}

// Document drops the embedding and distance.
func (c Candidate) Document() Document {
	return Document{ID: c.ID, Content: c.Content, Metadata: maps.Clone(c.Metadata)}
}

// Record is a passage written to an index.
type Record struct {
	ID        string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// IndexQuery is a nearest-neighbour request constrained by an optional
// inclusive range over the date field.
type IndexQuery struct {
	Vector []float32
	TopK   int
	Filter *query.TemporalFilter
}

// Index is a vector collection.
//
// Query must return content, metadata, embedding and distance for each row
// in a single call, ordered by ascending distance.
type Index interface {
	Query(ctx context.Context, q IndexQuery) ([]Candidate, error)
	Upsert(ctx context.Context, records []Record) error
	Health(ctx context.Context) error
	Close() error
}

// StableChunkID derives a deterministic id for chunk index of source.
//
// Example:
//
//	id := retrieval.StableChunkID("Wikinews", 0, text) // 32 hex chars
func StableChunkID(source string, index int, content string) string {
	sum := sha256.Sum256([]byte(source + "\n" + strconv.Itoa(index) + "\n" + content))
	return hex.EncodeToString(sum[:])[:32]
}

// DateTS reads the date field of meta as epoch milliseconds. Numeric values
// decoded from JSON or returned by index clients are all accepted.
func DateTS(meta map[string]any) (int64, bool) {
	switch v := meta[MetaDateTS].(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
