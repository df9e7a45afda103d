// Package badger provides an embedded retrieval.Index on BadgerDB.
//
// Records are stored as JSON under a per-collection key prefix and queried by
// brute-force cosine distance. It suits local development, tests and small
// collections; use a server backend for anything large.
package badger

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/calque-ai/go-chronorag/pkg/retrieval"
)

// Index implements retrieval.Index using BadgerDB.
type Index struct {
	db     *badger.DB
	prefix []byte
}

var _ retrieval.Index = (*Index)(nil)

type storedRecord struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Embedding []float32      `json:"embedding,omitempty"`
}

// New opens an index for collection at path. An empty path keeps the data in memory.
//
// Example:
//
//	idx, err := badger.New("", "rag_urls")
//	defer idx.Close()
func New(path, collection string) (*Index, error) {
	if collection == "" {
		return nil, errors.New("badger: collection is required")
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Index{db: db, prefix: []byte("chunk/" + collection + "/")}, nil
}

// Upsert writes records, replacing any with the same ID.
func (s *Index) Upsert(ctx context.Context, records []retrieval.Record) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.ID == "" {
			return errors.New("badger: record id is required")
		}
		val, err := json.Marshal(storedRecord(r))
		if err != nil {
			return fmt.Errorf("encode record %s: %w", r.ID, err)
		}
		if err := wb.Set(s.key(r.ID), val); err != nil {
			return fmt.Errorf("write record %s: %w", r.ID, err)
		}
	}
	return wb.Flush()
}

// Query scans the collection, applies the date filter and returns the TopK
// rows by ascending cosine distance.
func (s *Index) Query(ctx context.Context, q retrieval.IndexQuery) ([]retrieval.Candidate, error) {
	var out []retrieval.Candidate

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var rec storedRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}

			if q.Filter != nil {
				ts, ok := retrieval.DateTS(rec.Metadata)
				if !ok || !q.Filter.Contains(ts) {
					continue
				}
			}

			c := retrieval.Candidate{
				ID:        rec.ID,
				Content:   rec.Content,
				Metadata:  rec.Metadata,
				Embedding: rec.Embedding,
				Distance:  1,
			}
			if len(rec.Embedding) > 0 {
				sim, err := retrieval.CosineSimilarity(q.Vector, rec.Embedding)
				if err != nil {
					return fmt.Errorf("record %s: %w", rec.ID, err)
				}
				c.Distance = max(1-sim, 0)
			}
			out = append(out, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(out, func(a, b retrieval.Candidate) int { return cmp.Compare(a.Distance, b.Distance) })
	if q.TopK > 0 && len(out) > q.TopK {
		out = out[:q.TopK]
	}
	return out, nil
}

// Delete removes records by ID.
func (s *Index) Delete(ids []string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(s.key(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Health reports whether the database is open.
func (s *Index) Health(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

// Close closes the database.
func (s *Index) Close() error {
	return s.db.Close()
}

func (s *Index) key(id string) []byte {
	return append(slices.Clone(s.prefix), id...)
}
