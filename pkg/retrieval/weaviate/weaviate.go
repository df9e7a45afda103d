// Package weaviate implements retrieval.Index on a Weaviate class using the
// GraphQL nearVector search.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"github.com/calque-ai/go-chronorag/pkg/query"
	"github.com/calque-ai/go-chronorag/pkg/retrieval"
)

const (
	propContent = "content"
	propChunkID = "chunk_id"
)

// properties declared on the class and returned by Query, with their data types.
var properties = []struct{ name, dataType string }{
	{propContent, "text"},
	{propChunkID, "text"},
	{retrieval.MetaSource, "text"},
	{retrieval.MetaTitle, "text"},
	{retrieval.MetaPageID, "text"},
	{retrieval.MetaChunkIndex, "int"},
	{retrieval.MetaDateTS, "int"},
}

// Config holds Weaviate connection settings.
type Config struct {
	// Instance URL, e.g. "http://localhost:8080"
	URL string
	// Optional API key
	APIKey string
	// Collection name; converted to a Weaviate class name
	Collection string
}

// Client implements retrieval.Index for Weaviate.
type Client struct {
	client    *weaviate.Client
	className string
}

var _ retrieval.Index = (*Client)(nil)

// New creates a Weaviate index client.
//
// Example:
//
//	idx, err := weaviate.New(weaviate.Config{URL: "http://localhost:8080", Collection: "rag_urls"})
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("weaviate URL is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("weaviate collection is required")
	}

	scheme, host, ok := strings.Cut(cfg.URL, "://")
	if !ok {
		scheme, host = "http", cfg.URL
	}
	wcfg := weaviate.Config{Host: strings.TrimSuffix(host, "/"), Scheme: scheme}
	if cfg.APIKey != "" {
		wcfg.AuthConfig = auth.ApiKey{Value: cfg.APIKey}
	}

	client, err := weaviate.NewClient(wcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create weaviate client: %w", err)
	}
	return &Client{client: client, className: ClassName(cfg.Collection)}, nil
}

// ClassName turns a collection name such as "rag_urls" into a valid class
// name ("RagUrls").
func ClassName(collection string) string {
	var b strings.Builder
	upper := true
	for _, r := range collection {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	name := b.String()
	if name == "" || !unicode.IsLetter(rune(name[0])) {
		name = "C" + name
	}
	return name
}

// Query runs a nearVector search returning properties, distances and vectors.
func (c *Client) Query(ctx context.Context, q retrieval.IndexQuery) ([]retrieval.Candidate, error) {
	if len(q.Vector) == 0 {
		return nil, errors.New("query vector is required for weaviate search")
	}

	fields := make([]graphql.Field, 0, len(properties)+1)
	for _, p := range properties {
		fields = append(fields, graphql.Field{Name: p.name})
	}
	fields = append(fields, graphql.Field{Name: "_additional", Fields: []graphql.Field{
		{Name: "id"},
		{Name: "distance"},
		{Name: "vector"},
	}})

	get := c.client.GraphQL().Get().
		WithClassName(c.className).
		WithFields(fields...).
		WithNearVector(c.client.GraphQL().NearVectorArgBuilder().WithVector(q.Vector))
	if where := buildWhere(q.Filter); where != nil {
		get = get.WithWhere(where)
	}
	if q.TopK > 0 {
		get = get.WithLimit(q.TopK)
	}

	resp, err := get.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate search failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("weaviate search failed: %s", strings.Join(msgs, "; "))
	}
	return parseResults(resp.Data, c.className), nil
}

// Upsert writes records in one batch, creating the class on first use.
func (c *Client) Upsert(ctx context.Context, records []retrieval.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.ensureClass(ctx); err != nil {
		return err
	}

	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", r.ID)
		}
		props := make(map[string]any, len(r.Metadata)+2)
		for k, v := range r.Metadata {
			props[k] = v
		}
		props[propContent] = r.Content
		props[propChunkID] = r.ID
		objects = append(objects, &models.Object{
			Class:      c.className,
			ID:         objectID(r.ID),
			Properties: props,
			Vector:     models.C11yVector(r.Embedding),
		})
	}

	results, err := c.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate batch failed: %w", err)
	}
	for _, res := range results {
		if res.Result != nil && res.Result.Errors != nil && len(res.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate object %s: %s", res.ID, res.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// Health reports whether the instance is ready.
func (c *Client) Health(ctx context.Context) error {
	ready, err := c.client.Misc().ReadyChecker().Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate health check: %w", err)
	}
	if !ready {
		return errors.New("weaviate is not ready")
	}
	return nil
}

// Close is a no-op; the client holds no long-lived connection.
func (c *Client) Close() error {
	return nil
}

func (c *Client) ensureClass(ctx context.Context) error {
	exists, err := c.client.Schema().ClassExistenceChecker().WithClassName(c.className).Do(ctx)
	if err != nil {
		return fmt.Errorf("check class %s: %w", c.className, err)
	}
	if exists {
		return nil
	}

	props := make([]*models.Property, 0, len(properties))
	for _, p := range properties {
		props = append(props, &models.Property{Name: p.name, DataType: []string{p.dataType}})
	}
	err = c.client.Schema().ClassCreator().WithClass(&models.Class{
		Class:      c.className,
		Vectorizer: "none",
		VectorIndexConfig: map[string]any{
			"distance": "cosine",
		},
		Properties: props,
	}).Do(ctx)
	if err != nil {
		return fmt.Errorf("create class %s: %w", c.className, err)
	}
	return nil
}

// objectID maps a chunk id onto the UUID space Weaviate requires.
func objectID(id string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String())
}

func buildWhere(f *query.TemporalFilter) *filters.WhereBuilder {
	if f == nil {
		return nil
	}
	return filters.Where().
		WithOperator(filters.And).
		WithOperands([]*filters.WhereBuilder{
			filters.Where().WithPath([]string{f.Field}).WithOperator(filters.GreaterThanEqual).WithValueInt(f.Gte),
			filters.Where().WithPath([]string{f.Field}).WithOperator(filters.LessThanEqual).WithValueInt(f.Lte),
		})
}

func parseResults(data map[string]models.JSONObject, className string) []retrieval.Candidate {
	get, ok := data["Get"].(map[string]any)
	if !ok {
		return nil
	}
	items, _ := get[className].([]any)

	out := make([]retrieval.Candidate, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		c := retrieval.Candidate{Metadata: make(map[string]any, len(obj))}
		for key, value := range obj {
			switch key {
			case propContent:
				c.Content, _ = value.(string)
			case propChunkID:
				c.ID, _ = value.(string)
			case "_additional":
				parseAdditional(value, &c)
			default:
				if value != nil {
					c.Metadata[key] = value
				}
			}
		}
		out = append(out, c)
	}
	return out
}

func parseAdditional(value any, c *retrieval.Candidate) {
	add, ok := value.(map[string]any)
	if !ok {
		return
	}
	if c.ID == "" {
		c.ID, _ = add["id"].(string)
	}
	if d, ok := add["distance"].(float64); ok {
		c.Distance = max(d, 0)
	}
	if vec, ok := add["vector"].([]any); ok {
		c.Embedding = make([]float32, 0, len(vec))
		for _, x := range vec {
			f, _ := x.(float64)
			c.Embedding = append(c.Embedding, float32(f))
		}
	}
}
