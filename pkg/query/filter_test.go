package query

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func ms(s string) int64 {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t.UnixMilli()
}

func TestBuildFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		q       AnalyzedQuery
		want    *TemporalFilter
		wantErr error
	}{
		{
			name: "no dates",
			q:    AnalyzedQuery{CleanQuery: "news"},
			want: nil,
		},
		{
			name: "single date covers whole day",
			q:    AnalyzedQuery{Date: "2024-03-01"},
			want: &TemporalFilter{Field: DateField, Gte: 1709251200000, Lte: 1709337599000},
		},
		{
			name: "leap day",
			q:    AnalyzedQuery{Date: "2024-02-29"},
			want: &TemporalFilter{Field: DateField, Gte: ms("2024-02-29T00:00:00Z"), Lte: ms("2024-02-29T23:59:59Z")},
		},
		{
			name: "range",
			q:    AnalyzedQuery{DateRange: &DateRange{Start: "2023-12-30", End: "2024-01-02"}},
			want: &TemporalFilter{Field: DateField, Gte: ms("2023-12-30T00:00:00Z"), Lte: ms("2024-01-02T23:59:59Z")},
		},
		{
			name: "single day range",
			q:    AnalyzedQuery{DateRange: &DateRange{Start: "2024-06-01", End: "2024-06-01"}},
			want: &TemporalFilter{Field: DateField, Gte: ms("2024-06-01T00:00:00Z"), Lte: ms("2024-06-01T23:59:59Z")},
		},
		{
			name: "date takes precedence over range",
			q:    AnalyzedQuery{Date: "2024-03-01", DateRange: &DateRange{Start: "2020-01-01", End: "2020-12-31"}},
			want: &TemporalFilter{Field: DateField, Gte: 1709251200000, Lte: 1709337599000},
		},
		{
			name: "range reversed keeps bounds",
			q:    AnalyzedQuery{DateRange: &DateRange{Start: "2024-03-05", End: "2024-03-01"}},
			want: &TemporalFilter{Field: DateField, Gte: ms("2024-03-05T00:00:00Z"), Lte: ms("2024-03-01T23:59:59Z")},
		},
		{name: "calendar invalid date", q: AnalyzedQuery{Date: "2024-02-30"}, wantErr: ErrInvalidDate},
		{name: "wrong layout", q: AnalyzedQuery{Date: "03/01/2024"}, wantErr: ErrInvalidDate},
		{name: "range missing end", q: AnalyzedQuery{DateRange: &DateRange{Start: "2024-01-01"}}, wantErr: ErrInvalidDate},
		{name: "range bad start", q: AnalyzedQuery{DateRange: &DateRange{Start: "soon", End: "2024-01-01"}}, wantErr: ErrInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildFilter(tt.q)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("BuildFilter() error = %v, want %v", err, tt.wantErr)
				}
				if got != nil {
					t.Errorf("BuildFilter() = %+v on error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("BuildFilter() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("BuildFilter() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestTemporalFilterContains(t *testing.T) {
	t.Parallel()

	f, err := BuildFilter(AnalyzedQuery{Date: "2024-03-01"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		ts   string
		want bool
	}{
		{"2024-02-29T23:59:59Z", false},
		{"2024-03-01T00:00:00Z", true},
		{"2024-03-01T12:30:00Z", true},
		{"2024-03-01T23:59:59Z", true},
		{"2024-03-02T00:00:00Z", false},
	}
	for _, tt := range tests {
		if got := f.Contains(ms(tt.ts)); got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.ts, got, tt.want)
		}
	}

	start, end := f.Bounds()
	if start.Format(time.RFC3339) != "2024-03-01T00:00:00Z" || end.Format(time.RFC3339) != "2024-03-01T23:59:59Z" {
		t.Errorf("Bounds() = %v, %v", start, end)
	}
}

func TestAnalyzedQueryCopies(t *testing.T) {
	t.Parallel()

	vec := []float32{1, 2}
	q := AnalyzedQuery{CleanQuery: "q"}
	withVec := q.WithEmbedding(vec)
	vec[0] = 9
	if withVec.Embedding[0] != 1 {
		t.Error("WithEmbedding should copy the vector")
	}
	if q.Embedding != nil {
		t.Error("WithEmbedding mutated the receiver")
	}

	f := &TemporalFilter{Field: DateField, Gte: 1, Lte: 2}
	withFilter := q.WithFilter(f)
	f.Gte = 5
	if withFilter.Filter.Gte != 1 || q.Filter != nil {
		t.Error("WithFilter should copy the filter and leave the receiver untouched")
	}
	if q.WithFilter(nil).Filter != nil {
		t.Error("WithFilter(nil) should clear the filter")
	}
}

func TestParseType(t *testing.T) {
	t.Parallel()

	if ParseType("specific_fact") != SpecificFact || ParseType("broad_temporal") != BroadTemporal || ParseType("") != BroadTemporal {
		t.Error("unexpected ParseType mapping")
	}
}
