package query

import (
	"errors"
	"fmt"
	"time"
)

// DateField is the metadata field holding a document's publication time in
// epoch milliseconds (UTC).
const DateField = "date_ts"

// DateLayout is the calendar date format expected from the analyzer.
const DateLayout = "2006-01-02"

// ErrInvalidDate is returned when an extracted date cannot be turned into a filter.
var ErrInvalidDate = errors.New("invalid date")

// TemporalFilter is an inclusive range over Field: Gte <= value <= Lte.
type TemporalFilter struct {
	Field string
	Gte   int64
	Lte   int64
}

// Contains reports whether ts (epoch ms) falls inside the filter.
func (f TemporalFilter) Contains(ts int64) bool {
	return ts >= f.Gte && ts <= f.Lte
}

// Bounds returns the range as UTC times.
func (f TemporalFilter) Bounds() (time.Time, time.Time) {
	return time.UnixMilli(f.Gte).UTC(), time.UnixMilli(f.Lte).UTC()
}

// BuildFilter converts the extracted date information into a range filter.
//
// Input: analyzed query
// Output: *TemporalFilter, or nil when no date was extracted
// Behavior:
//   - Date set: [D 00:00:00Z, D 23:59:59Z]
//   - DateRange set: [Start 00:00:00Z, End 23:59:59Z]
//   - Date wins when both are present
//   - Start after End is kept as given and matches nothing
//   - unparseable dates or a missing range bound return ErrInvalidDate
//
// Example:
//
//	f, err := query.BuildFilter(query.AnalyzedQuery{Date: "2024-03-01"})
//	// f.Gte = 1709251200000, f.Lte = 1709337599000
func BuildFilter(q AnalyzedQuery) (*TemporalFilter, error) {
	switch {
	case q.Date != "":
		day, err := parseDay(q.Date)
		if err != nil {
			return nil, err
		}
		return newFilter(day, day), nil

	case q.DateRange != nil:
		start, err := parseDay(q.DateRange.Start)
		if err != nil {
			return nil, fmt.Errorf("range start: %w", err)
		}
		end, err := parseDay(q.DateRange.End)
		if err != nil {
			return nil, fmt.Errorf("range end: %w", err)
		}
		return newFilter(start, end), nil

	default:
		return nil, nil
	}
}

func newFilter(startDay, endDay time.Time) *TemporalFilter {
	endOfDay := endDay.Add(24*time.Hour - time.Second)
	return &TemporalFilter{
		Field: DateField,
		Gte:   startDay.UnixMilli(),
		Lte:   endOfDay.UnixMilli(),
	}
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
