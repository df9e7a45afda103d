package badger

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/calque-ai/go-chronorag/pkg/query"
	"github.com/calque-ai/go-chronorag/pkg/retrieval"
)

func newTestIndex(t *testing.T, collection string) *Index {
	t.Helper()
	idx, err := New("", collection)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func seed(t *testing.T, idx *Index) {
	t.Helper()
	records := []retrieval.Record{
		{ID: "a", Content: "march storm", Embedding: []float32{1, 0}, Metadata: map[string]any{"source": "Wikinews", "date_ts": int64(1709294400000)}},
		{ID: "b", Content: "march flood", Embedding: []float32{0.9, 0.1}, Metadata: map[string]any{"source": "Wikinews", "date_ts": int64(1709337599000)}},
		{ID: "c", Content: "april vote", Embedding: []float32{0, 1}, Metadata: map[string]any{"source": "Wikinews", "date_ts": int64(1711972800000)}},
		{ID: "d", Content: "undated", Embedding: []float32{1, 1}},
	}
	if err := idx.Upsert(context.Background(), records); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}

func ids(cands []retrieval.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.ID
	}
	return out
}

func TestQuery(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t, "news")
	seed(t, idx)
	march1, err := query.BuildFilter(query.AnalyzedQuery{Date: "2024-03-01"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		q    retrieval.IndexQuery
		want []string
	}{
		{"unfiltered nearest first", retrieval.IndexQuery{Vector: []float32{1, 0}, TopK: 10}, []string{"a", "b", "d", "c"}},
		{"top k truncates", retrieval.IndexQuery{Vector: []float32{1, 0}, TopK: 2}, []string{"a", "b"}},
		{"date filter inclusive end of day", retrieval.IndexQuery{Vector: []float32{0, 1}, TopK: 10, Filter: march1}, []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := idx.Query(context.Background(), tt.q)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if !reflect.DeepEqual(ids(got), tt.want) {
				t.Errorf("Query() ids = %v, want %v", ids(got), tt.want)
			}
			for _, c := range got {
				if c.Distance < 0 || len(c.Embedding) == 0 {
					t.Errorf("candidate %s: distance %v, embedding %v", c.ID, c.Distance, c.Embedding)
				}
			}
		})
	}
}

func TestQueryReturnsMetadata(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t, "news")
	seed(t, idx)

	got, err := idx.Query(context.Background(), retrieval.IndexQuery{Vector: []float32{1, 0}, TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "march storm" || got[0].Metadata["source"] != "Wikinews" {
		t.Fatalf("Query() = %+v", got)
	}
	if ts, ok := retrieval.DateTS(got[0].Metadata); !ok || ts != 1709294400000 {
		t.Errorf("date_ts = %d, %v", ts, ok)
	}
	if got[0].Distance != 0 {
		t.Errorf("identical vector distance = %v, want 0", got[0].Distance)
	}
}

func TestCollectionsAreIsolated(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t, "one")
	seed(t, idx)

	other := &Index{db: idx.db, prefix: []byte("chunk/two/")}
	got, err := other.Query(context.Background(), retrieval.IndexQuery{Vector: []float32{1, 0}, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("other collection returned %v", ids(got))
	}
}

func TestUpsertReplaceAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	idx := newTestIndex(t, "news")
	seed(t, idx)

	if err := idx.Upsert(ctx, []retrieval.Record{{ID: "a", Content: "updated", Embedding: []float32{1, 0}}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Delete([]string{"b", "c", "d"}); err != nil {
		t.Fatal(err)
	}

	got, err := idx.Query(ctx, retrieval.IndexQuery{Vector: []float32{1, 0}, TopK: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Content != "updated" {
		t.Errorf("Query() = %+v", got)
	}

	if err := idx.Upsert(ctx, []retrieval.Record{{Content: "no id"}}); err == nil {
		t.Error("expected error for record without id")
	}
}

func TestDimensionMismatch(t *testing.T) {
	t.Parallel()

	idx := newTestIndex(t, "news")
	seed(t, idx)

	if _, err := idx.Query(context.Background(), retrieval.IndexQuery{Vector: []float32{1, 0, 0}, TopK: 3}); !errors.Is(err, retrieval.ErrDimensionMismatch) {
		t.Errorf("Query() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestHealthAndNew(t *testing.T) {
	t.Parallel()

	if _, err := New("", ""); err == nil {
		t.Error("expected error for empty collection")
	}

	idx, err := New("", "news")
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Health(context.Background()); err != nil {
		t.Errorf("Health() = %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := idx.Health(context.Background()); err == nil {
		t.Error("Health() after Close should fail")
	}
}
