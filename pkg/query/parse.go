package query

import (
	"encoding/json"
	"strings"

	"github.com/calque-ai/go-chronorag/pkg/helpers"
)

// Outcome tags a ParseResult.
type Outcome int

// Parse outcomes.
const (
	// Parsed means the model output yielded a usable analysis.
	Parsed Outcome = iota + 1
	// Fallback means the raw question is used unchanged with no dates.
	Fallback
)

func (o Outcome) String() string {
	switch o {
	case Parsed:
		return "parsed"
	case Fallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// Fallback reasons.
const (
	ReasonNoJSON       = "no JSON object found"
	ReasonInvalidJSON  = "invalid JSON"
	ReasonMissingField = "missing clean_query field"
)

// ParseResult is the outcome of parsing analyzer output. Query is always
// usable; callers branch on Outcome to decide whether to report Reason.
type ParseResult struct {
	Outcome Outcome
	Query   AnalyzedQuery
	Reason  string
}

// analysisResponse is the JSON shape requested from the model.
type analysisResponse struct {
	CleanQuery *string            `json:"clean_query" jsonschema:"description=The query with every date phrase removed"`
	Date       *string            `json:"date" jsonschema:"description=Single referenced day as YYYY-MM-DD or null"`
	DateRange  *dateRangeResponse `json:"date_range" jsonschema:"description=Referenced date interval or null"`
	QueryType  *string            `json:"query_type,omitempty" jsonschema:"enum=broad_temporal,enum=specific_fact"`
}

type dateRangeResponse struct {
	Start *string `json:"start" jsonschema:"description=First day as YYYY-MM-DD"`
	End   *string `json:"end" jsonschema:"description=Last day as YYYY-MM-DD"`
}

// ParseAnalysis strictly parses the model completion for raw.
//
// Input: the original question and the completion text
// Output: ParseResult tagged Parsed or Fallback
// Behavior:
//   - the first balanced, valid JSON object in text is used (prose and code fences are skipped)
//   - no object, invalid JSON or a missing clean_query key gives Fallback with the trimmed raw query
//   - an empty or null clean_query is replaced by the raw query
//   - when both date and date_range are present only date is kept
//
// Example:
//
//	res := query.ParseAnalysis(q, "```json\n{\"clean_query\":\"floods\",\"date\":\"2024-05-02\"}\n```")
//	// res.Outcome == query.Parsed, res.Query.Date == "2024-05-02"
func ParseAnalysis(raw, text string) ParseResult {
	raw = strings.TrimSpace(raw)
	fallback := func(reason string) ParseResult {
		return ParseResult{
			Outcome: Fallback,
			Query:   AnalyzedQuery{CleanQuery: raw, Type: BroadTemporal},
			Reason:  reason,
		}
	}

	obj, reason := extractJSONObject(text)
	if obj == "" {
		return fallback(reason)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		return fallback(ReasonInvalidJSON)
	}
	if _, ok := fields["clean_query"]; !ok {
		return fallback(ReasonMissingField)
	}

	var resp analysisResponse
	if err := json.Unmarshal([]byte(obj), &resp); err != nil {
		return fallback(ReasonInvalidJSON + ": " + err.Error())
	}

	q := AnalyzedQuery{
		CleanQuery: helpers.DefaultString(deref(resp.CleanQuery), raw),
		Type:       ParseType(deref(resp.QueryType)),
	}
	q.CleanQuery = strings.TrimSpace(q.CleanQuery)

	if date := strings.TrimSpace(deref(resp.Date)); date != "" {
		q.Date = date
	} else if resp.DateRange != nil {
		start := strings.TrimSpace(deref(resp.DateRange.Start))
		end := strings.TrimSpace(deref(resp.DateRange.End))
		if start != "" || end != "" {
			q.DateRange = &DateRange{Start: start, End: end}
		}
	}

	return ParseResult{Outcome: Parsed, Query: q}
}

// extractJSONObject returns the first balanced {...} substring of s that is
// valid JSON. Braces inside JSON strings are ignored. When nothing usable is
// found the returned reason says why.
func extractJSONObject(s string) (string, string) {
	reason := ReasonNoJSON
	for start := strings.IndexByte(s, '{'); start >= 0; {
		if end := matchBrace(s, start); end > 0 {
			candidate := s[start : end+1]
			if json.Valid([]byte(candidate)) {
				return candidate, ""
			}
			reason = ReasonInvalidJSON
		}

		next := strings.IndexByte(s[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", reason
}

// matchBrace returns the index of the brace closing the one at s[open], or -1.
func matchBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
