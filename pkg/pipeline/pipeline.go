// Package pipeline answers questions over a temporal document collection.
//
// One Ask call runs the stages in order: analyze the question, build the
// date filter, embed the clean query, retrieve with the strategy registered
// for the query type, format the context and generate the answer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/calque-ai/go-chronorag/pkg/config"
	"github.com/calque-ai/go-chronorag/pkg/helpers"
	"github.com/calque-ai/go-chronorag/pkg/llm"
	"github.com/calque-ai/go-chronorag/pkg/logging"
	"github.com/calque-ai/go-chronorag/pkg/observability"
	"github.com/calque-ai/go-chronorag/pkg/prompt"
	"github.com/calque-ai/go-chronorag/pkg/query"
	"github.com/calque-ai/go-chronorag/pkg/retrieval"
)

// NoDocumentsAnswer is returned as the answer text when retrieval finds nothing.
const NoDocumentsAnswer = "context has no matching documents"

// Stage names used for spans and metrics.
const (
	StageAnalyze  = "analyze"
	StageEmbed    = "embed"
	StageRetrieve = "retrieve"
	StageAnswer   = "answer"
)

const tracerName = "github.com/calque-ai/go-chronorag/pkg/pipeline"

// Answer is the result of one question.
type Answer struct {
	Text      string               `json:"text"`
	Sources   []string             `json:"sources"`
	Documents []retrieval.Document `json:"documents"`
	Query     query.AnalyzedQuery  `json:"query"`
}

// Metrics receives stage timings and request outcomes.
type Metrics interface {
	ObserveStage(stage string, d time.Duration, err error)
	ObserveRequest(t query.Type, err error)
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, time.Duration, error) {}
func (noopMetrics) ObserveRequest(query.Type, error)          {}

// Pipeline wires the analyzer, embedder, retrievers and answer model.
type Pipeline struct {
	client      llm.Client
	analyzer    *query.Analyzer
	registry    *retrieval.Registry
	context     retrieval.ContextBuilder
	prompts     map[query.Type]*prompt.Prompt
	temperature float64
	timeout     time.Duration
	metrics     Metrics
	tracer      trace.Tracer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithAnalyzer replaces the default analyzer built on the pipeline client.
func WithAnalyzer(a *query.Analyzer) Option {
	return func(p *Pipeline) { p.analyzer = a }
}

// WithMetrics records stage timings and outcomes. If m also implements
// query.Observer it receives analysis outcomes from the default analyzer.
func WithMetrics(m Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithTracer sets the tracer. Default: the global provider's tracer.
func WithTracer(t trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

// WithTimeout bounds each Ask call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithTemperature sets the answer sampling temperature.
func WithTemperature(t float64) Option {
	return func(p *Pipeline) { p.temperature = t }
}

// WithContextBuilder replaces the context formatter.
func WithContextBuilder(b retrieval.ContextBuilder) Option {
	return func(p *Pipeline) { p.context = b }
}

// WithAnswerPrompt sets the answer template for a query type. The template
// receives the clean query as {{.Input}} and the documents as {{.Context}}.
func WithAnswerPrompt(t query.Type, pr *prompt.Prompt) Option {
	return func(p *Pipeline) { p.prompts[t] = pr }
}

// New creates a pipeline.
//
// Example:
//
//	reg, _ := retrieval.DefaultRegistry(idx, retrieval.DefaultOptions())
//	p, err := pipeline.New(client, reg, pipeline.WithTimeout(time.Minute))
//	ans, err := p.Ask(ctx, "What happened on 2024-03-01?")
func New(client llm.Client, registry *retrieval.Registry, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, errors.New("pipeline: llm client is required")
	}
	if registry == nil {
		return nil, errors.New("pipeline: retriever registry is required")
	}

	p := &Pipeline{
		client:   client,
		registry: registry,
		context:  retrieval.ContextBuilder{Headers: true},
		prompts: map[query.Type]*prompt.Prompt{
			query.BroadTemporal: prompt.AnswerBroadTemporal,
			query.SpecificFact:  prompt.AnswerSpecificFact,
		},
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.metrics == nil {
		p.metrics = noopMetrics{}
	}
	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}
	if p.analyzer == nil {
		var aopts []query.AnalyzerOption
		if o, ok := p.metrics.(query.Observer); ok {
			aopts = append(aopts, query.WithObserver(o))
		}
		p.analyzer = query.NewAnalyzer(client, aopts...)
	}
	return p, nil
}

// FromConfig creates a pipeline using the answer temperature, request timeout
// and context separator of cfg. Later opts override them.
func FromConfig(cfg config.Config, client llm.Client, registry *retrieval.Registry, opts ...Option) (*Pipeline, error) {
	base := []Option{
		WithTemperature(cfg.AnswerTemperature),
		WithTimeout(cfg.RequestTimeout),
		WithContextBuilder(retrieval.ContextBuilder{Separator: cfg.ContextSeparator, Headers: true}),
	}
	return New(client, registry, append(base, opts...)...)
}

// Ask answers question from the indexed documents.
//
// Input: natural-language question, possibly mentioning a date or date range
// Output: answer text, deduplicated sources, the selected documents and the analyzed query
// Behavior: an unusable analysis or date never fails the call. An empty
// retrieval returns NoDocumentsAnswer without calling the answer model.
// Collaborator failures are returned as *logging.Error.
func (p *Pipeline) Ask(ctx context.Context, question string) (ans *Answer, err error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	ctx, span := p.tracer.Start(ctx, "chronorag.ask")
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = logging.WithTraceID(ctx, sc.TraceID().String())
	}

	var aq query.AnalyzedQuery
	defer func() {
		p.metrics.ObserveRequest(aq.Type, err)
		observability.EndSpan(span, err)
	}()

	aq, err = runStage(ctx, p, StageAnalyze, func(ctx context.Context) (query.AnalyzedQuery, error) {
		return p.analyzer.Analyze(ctx, question)
	})
	if err != nil {
		return nil, p.fail(ctx, err, "analyze query")
	}

	filter, ferr := query.BuildFilter(aq)
	if ferr != nil {
		logging.LogWarn(ctx, "ignoring unusable date constraint", "error", ferr, "date", aq.Date)
	} else {
		aq = aq.WithFilter(filter)
	}
	span.SetAttributes(
		attribute.String("chronorag.query_type", string(aq.Type)),
		attribute.Bool("chronorag.date_filter", aq.Filter != nil),
	)

	vec, err := runStage(ctx, p, StageEmbed, func(ctx context.Context) ([]float32, error) {
		return p.client.Embed(ctx, aq.CleanQuery)
	})
	if err != nil {
		return nil, p.fail(ctx, err, "embed query")
	}
	aq = aq.WithEmbedding(vec)

	docs, err := runStage(ctx, p, StageRetrieve, func(ctx context.Context) ([]retrieval.Document, error) {
		r, err := p.registry.For(aq.Type)
		if err != nil {
			return nil, err
		}
		return r.Retrieve(ctx, aq)
	})
	if err != nil {
		return nil, p.fail(ctx, err, "retrieve documents")
	}
	span.SetAttributes(attribute.Int("chronorag.documents", len(docs)))

	ans = &Answer{
		Sources:   retrieval.Sources(docs),
		Documents: docs,
		Query:     aq,
	}
	if len(docs) == 0 {
		logging.LogInfo(ctx, "no documents matched", "query_type", string(aq.Type), "date_filter", aq.Filter != nil)
		ans.Text = NoDocumentsAnswer
		return ans, nil
	}

	ans.Text, err = runStage(ctx, p, StageAnswer, func(ctx context.Context) (string, error) {
		return p.answer(ctx, aq.CleanQuery, aq.Type, docs)
	})
	if err != nil {
		return nil, p.fail(ctx, err, "generate answer")
	}

	logging.LogInfo(ctx, "question answered",
		"query_type", string(aq.Type), "documents", len(docs), "sources", len(ans.Sources))
	return ans, nil
}

func (p *Pipeline) answer(ctx context.Context, cleanQuery string, t query.Type, docs []retrieval.Document) (string, error) {
	tmpl, ok := p.prompts[t]
	if !ok {
		tmpl = p.prompts[query.BroadTemporal]
	}
	text, err := tmpl.Render(cleanQuery, map[string]any{"Context": p.context.Build(docs)})
	if err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return p.client.Complete(ctx, llm.Request{
		Prompt:      text,
		Temperature: helpers.PtrOf(p.temperature),
	})
}

func (p *Pipeline) fail(ctx context.Context, err error, msg string) error {
	wrapped := logging.WrapErr(ctx, err, msg)
	wrapped.Log(ctx)
	return wrapped
}

// runStage times fn into the metrics and wraps it in a child span.
func runStage[T any](ctx context.Context, p *Pipeline, name string, fn func(context.Context) (T, error)) (T, error) {
	ctx, span := p.tracer.Start(ctx, "chronorag."+name)
	start := time.Now()
	v, err := fn(ctx)
	p.metrics.ObserveStage(name, time.Since(start), err)
	observability.EndSpan(span, err)
	return v, err
}
