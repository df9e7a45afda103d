// Package qdrant implements retrieval.Index on a Qdrant collection over gRPC.
package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	qd "github.com/qdrant/go-client/qdrant"

	"github.com/calque-ai/go-chronorag/pkg/query"
	"github.com/calque-ai/go-chronorag/pkg/retrieval"
)

const (
	payloadContent = "content"
	payloadChunkID = "chunk_id"
)

// Config holds Qdrant connection settings.
type Config struct {
	// Host of the gRPC endpoint, e.g. "localhost"
	Host string
	// Port of the gRPC endpoint, 6334 by default
	Port int
	// Optional API key
	APIKey string
	// UseTLS enables TLS on the gRPC connection
	UseTLS bool
	// Collection holding the chunks
	Collection string
	// Dimension used when the collection has to be created
	Dimension int
}

// Client implements retrieval.Index for Qdrant.
type Client struct {
	client     *qd.Client
	collection string
	dimension  int
}

var _ retrieval.Index = (*Client)(nil)

// New creates a Qdrant index client.
//
// Example:
//
//	idx, err := qdrant.New(qdrant.Config{Host: "localhost", Collection: "rag_urls", Dimension: 768})
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qd.NewClient(&qd.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{client: client, collection: cfg.Collection, dimension: cfg.Dimension}, nil
}

// Query runs one nearest-neighbour search returning payloads and vectors.
func (c *Client) Query(ctx context.Context, q retrieval.IndexQuery) ([]retrieval.Candidate, error) {
	if len(q.Vector) == 0 {
		return nil, errors.New("query vector is required for qdrant search")
	}

	req := &qd.QueryPoints{
		CollectionName: c.collection,
		Query:          qd.NewQuery(q.Vector...),
		WithPayload:    qd.NewWithPayload(true),
		WithVectors:    qd.NewWithVectors(true),
		Filter:         buildFilter(q.Filter),
	}
	if q.TopK > 0 {
		req.Limit = qd.PtrOf(uint64(q.TopK))
	}

	points, err := c.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	out := make([]retrieval.Candidate, 0, len(points))
	for _, p := range points {
		out = append(out, convertPoint(p))
	}
	return out, nil
}

// Upsert writes records, creating the collection on first use.
func (c *Client) Upsert(ctx context.Context, records []retrieval.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := c.ensureCollection(ctx, len(records[0].Embedding)); err != nil {
		return err
	}

	const batchSize = 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))
		points := make([]*qd.PointStruct, 0, end-i)
		for _, r := range records[i:end] {
			if len(r.Embedding) == 0 {
				return fmt.Errorf("record %s has no embedding", r.ID)
			}
			points = append(points, &qd.PointStruct{
				Id:      qd.NewID(pointID(r.ID)),
				Vectors: qd.NewVectors(r.Embedding...),
				Payload: buildPayload(r),
			})
		}

		_, err := c.client.Upsert(ctx, &qd.UpsertPoints{
			CollectionName: c.collection,
			Points:         points,
			Wait:           qd.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d to %s: %w", i, end-1, c.collection, err)
		}
	}
	return nil
}

// Health checks the server is reachable.
func (c *Client) Health(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close qdrant: %w", err)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, dim int) error {
	exists, err := c.client.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", c.collection, err)
	}
	if exists {
		return nil
	}
	if dim == 0 {
		dim = c.dimension
	}
	if dim <= 0 {
		return fmt.Errorf("cannot create collection %s without a vector dimension", c.collection)
	}

	err = c.client.CreateCollection(ctx, &qd.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qd.NewVectorsConfig(&qd.VectorParams{
			Size:     uint64(dim),
			Distance: qd.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", c.collection, err)
	}
	return nil
}

// pointID maps a chunk id onto the UUID space Qdrant requires.
func pointID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id)).String()
}

func buildFilter(f *query.TemporalFilter) *qd.Filter {
	if f == nil {
		return nil
	}
	gte, lte := float64(f.Gte), float64(f.Lte)
	return &qd.Filter{
		Must: []*qd.Condition{
			qd.NewRange(f.Field, &qd.Range{Gte: &gte, Lte: &lte}),
		},
	}
}

func buildPayload(r retrieval.Record) map[string]*qd.Value {
	payload := make(map[string]*qd.Value, len(r.Metadata)+2)
	for key, value := range r.Metadata {
		switch v := value.(type) {
		case string:
			payload[key] = qd.NewValueString(v)
		case int:
			payload[key] = qd.NewValueInt(int64(v))
		case int64:
			payload[key] = qd.NewValueInt(v)
		case float64:
			payload[key] = qd.NewValueDouble(v)
		case bool:
			payload[key] = qd.NewValueBool(v)
		default:
			payload[key] = qd.NewValueString(fmt.Sprintf("%v", v))
		}
	}
	payload[payloadContent] = qd.NewValueString(r.Content)
	payload[payloadChunkID] = qd.NewValueString(r.ID)
	return payload
}

func convertPoint(p *qd.ScoredPoint) retrieval.Candidate {
	c := retrieval.Candidate{
		Distance: max(1-float64(p.GetScore()), 0),
		Metadata: make(map[string]any, len(p.GetPayload())),
	}
	if v := p.GetVectors().GetVector(); v != nil {
		if dense := v.GetDense(); dense != nil {
			c.Embedding = dense.GetData()
		} else {
			c.Embedding = v.GetData()
		}
	}

	for key, value := range p.GetPayload() {
		switch key {
		case payloadContent:
			c.Content = value.GetStringValue()
			continue
		case payloadChunkID:
			c.ID = value.GetStringValue()
			continue
		}
		switch kind := value.GetKind().(type) {
		case *qd.Value_StringValue:
			c.Metadata[key] = kind.StringValue
		case *qd.Value_IntegerValue:
			c.Metadata[key] = kind.IntegerValue
		case *qd.Value_DoubleValue:
			c.Metadata[key] = kind.DoubleValue
		case *qd.Value_BoolValue:
			c.Metadata[key] = kind.BoolValue
		}
	}

	if c.ID == "" {
		c.ID = p.GetId().GetUuid()
	}
	return c
}
