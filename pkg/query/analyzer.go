package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calque-ai/go-chronorag/pkg/helpers"
	"github.com/calque-ai/go-chronorag/pkg/llm"
	"github.com/calque-ai/go-chronorag/pkg/logging"
	"github.com/calque-ai/go-chronorag/pkg/prompt"
)

// ErrEmptyQuery is returned for a blank question.
var ErrEmptyQuery = errors.New("empty query")

// Analyzer extracts a clean query and temporal constraint from a question
// using one deterministic model completion.
type Analyzer struct {
	completer llm.Completer
	prompt    *prompt.Prompt
	format    *llm.ResponseFormat
	observer  Observer
}

// Observer is notified of every parse outcome.
type Observer interface {
	ObserveAnalysis(outcome Outcome, reason string)
}

// AnalyzerOption configures an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithPrompt replaces the parser prompt. The template receives the question as {{.Input}}.
func WithPrompt(p *prompt.Prompt) AnalyzerOption {
	return func(a *Analyzer) { a.prompt = p }
}

// WithoutSchema stops sending a response schema, for models that reject structured output.
func WithoutSchema() AnalyzerOption {
	return func(a *Analyzer) { a.format = nil }
}

// WithObserver reports parse outcomes to o.
func WithObserver(o Observer) AnalyzerOption {
	return func(a *Analyzer) { a.observer = o }
}

// NewAnalyzer creates an analyzer that calls c.
func NewAnalyzer(c llm.Completer, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		completer: c,
		prompt:    prompt.QueryParser,
		format:    llm.SchemaFor[analysisResponse]("query_analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the parser prompt for raw and parses the result.
//
// Input: question text
// Output: AnalyzedQuery without embedding or filter
// Behavior: malformed model output never fails the call; it falls back to
// the trimmed question and logs a warning. Completion errors are returned.
func (a *Analyzer) Analyze(ctx context.Context, raw string) (AnalyzedQuery, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AnalyzedQuery{}, ErrEmptyQuery
	}

	text, err := a.prompt.Render(raw)
	if err != nil {
		return AnalyzedQuery{}, fmt.Errorf("render parser prompt: %w", err)
	}

	completion, err := a.completer.Complete(ctx, llm.Request{
		Prompt:      text,
		Temperature: helpers.PtrOf(0.0),
		Format:      a.format,
	})
	if err != nil {
		return AnalyzedQuery{}, fmt.Errorf("analyze query: %w", err)
	}

	res := ParseAnalysis(raw, completion)
	if a.observer != nil {
		a.observer.ObserveAnalysis(res.Outcome, res.Reason)
	}
	switch res.Outcome {
	case Fallback:
		logging.LogWarn(ctx, "query analysis fell back to raw query", "reason", res.Reason)
	default:
		logging.LogDebug(ctx, "query analyzed",
			"clean_query", res.Query.CleanQuery,
			"date", res.Query.Date,
			"has_range", res.Query.DateRange != nil,
			"query_type", string(res.Query.Type),
		)
	}
	return res.Query, nil
}
