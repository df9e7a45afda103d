// Package llm defines the language-model contracts consumed by the pipeline:
// a single-shot text completion and a text embedding.
//
// Providers live in sub-packages (ollama, openai, gemini). Each provider
// implements both Completer and Embedder so one client can serve the query
// analyzer, the query embedding and the answer generation.
package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Completer produces one completion for one prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Client is a provider that can both complete and embed.
type Client interface {
	Completer
	Embedder
}

// Request is a single completion call.
type Request struct {
	Prompt string
	// Temperature pins sampling; nil leaves the provider default.
	Temperature *float64
	// Format asks for structured JSON output when the provider supports it.
	Format *ResponseFormat
}

// ResponseFormat describes a JSON schema the model output should follow.
type ResponseFormat struct {
	Name   string
	Schema *jsonschema.Schema
}

// SchemaFor reflects T into a response format.
//
// Input: schema name, type parameter with json tags
// Output: *ResponseFormat with an inline (no $ref) schema
//
// Example:
//
//	format := llm.SchemaFor[analysisResponse]("query_analysis")
func SchemaFor[T any](name string) *ResponseFormat {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	var v T
	return &ResponseFormat{Name: name, Schema: r.Reflect(&v)}
}

// SchemaJSON marshals the schema for providers that take raw JSON.
func (f *ResponseFormat) SchemaJSON() (json.RawMessage, error) {
	if f == nil || f.Schema == nil {
		return nil, nil
	}
	b, err := json.Marshal(f.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON schema: %w", err)
	}
	return b, nil
}

// SchemaMap returns the schema as a generic map.
func (f *ResponseFormat) SchemaMap() (map[string]any, error) {
	b, err := f.SchemaJSON()
	if err != nil || b == nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("failed to decode JSON schema: %w", err)
	}
	return m, nil
}
