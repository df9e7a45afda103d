package llm

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type sampleResponse struct {
	CleanQuery string  `json:"clean_query"`
	Date       *string `json:"date"`
}

func TestSchemaFor(t *testing.T) {
	t.Parallel()

	format := SchemaFor[sampleResponse]("sample")
	if format.Name != "sample" || format.Schema == nil {
		t.Fatalf("SchemaFor() = %+v", format)
	}

	m, err := format.SchemaMap()
	if err != nil {
		t.Fatalf("SchemaMap() error = %v", err)
	}
	if m["type"] != "object" {
		t.Errorf("schema type = %v, want object", m["type"])
	}
	props, ok := m["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", m)
	}
	for _, key := range []string{"clean_query", "date"} {
		if _, ok := props[key]; !ok {
			t.Errorf("schema missing property %q", key)
		}
	}
	if _, ok := m["$ref"]; ok {
		t.Error("schema should be inline")
	}
}

func TestSchemaJSONNil(t *testing.T) {
	t.Parallel()

	var f *ResponseFormat
	b, err := f.SchemaJSON()
	if err != nil || b != nil {
		t.Errorf("nil format SchemaJSON() = %s, %v", b, err)
	}
	m, err := f.SchemaMap()
	if err != nil || m != nil {
		t.Errorf("nil format SchemaMap() = %v, %v", m, err)
	}
}

func TestMockClientComplete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMockClient("first", "second")

	for _, want := range []string{"first", "second", "second"} {
		got, err := m.Complete(ctx, Request{Prompt: "p"})
		if err != nil {
			t.Fatalf("Complete() error = %v", err)
		}
		if got != want {
			t.Errorf("Complete() = %q, want %q", got, want)
		}
	}
	if n := len(m.Requests()); n != 3 {
		t.Errorf("recorded %d requests, want 3", n)
	}

	if _, err := NewMockClient().Complete(ctx, Request{}); err == nil {
		t.Error("expected error with no responses")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := m.Complete(cancelled, Request{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Complete() on cancelled ctx = %v", err)
	}
}

func TestMockClientEmbed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMockClient().WithEmbedding("known", []float32{1, 0})

	got, err := m.Embed(ctx, "known")
	if err != nil || !reflect.DeepEqual(got, []float32{1, 0}) {
		t.Errorf("Embed(known) = %v, %v", got, err)
	}

	a, _ := m.Embed(ctx, "other")
	b, _ := m.Embed(ctx, "other")
	if len(a) != 8 || !reflect.DeepEqual(a, b) {
		t.Errorf("hash embeddings should be stable 8-dim vectors: %v vs %v", a, b)
	}
	if got := m.Embedded(); len(got) != 3 {
		t.Errorf("Embedded() = %v", got)
	}
}

func TestMockClientErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMockClientWithError("offline")
	if _, err := m.Complete(ctx, Request{}); err == nil {
		t.Error("expected completion error")
	}
	if _, err := m.Embed(ctx, "x"); err == nil {
		t.Error("expected embed error")
	}

	boom := errors.New("boom")
	partial := NewMockClient("ok").WithEmbedError(boom)
	if _, err := partial.Complete(ctx, Request{}); err != nil {
		t.Errorf("Complete() error = %v", err)
	}
	if _, err := partial.Embed(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("Embed() error = %v, want boom", err)
	}
}
