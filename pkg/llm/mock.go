package llm

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockClient is an in-memory Client for tests.
//
// Completions are returned from a queue (the last one repeats), embeddings
// come from a fixed table or, for unknown text, from a deterministic hash.
type MockClient struct {
	mu          sync.Mutex
	responses   []string
	completeErr error
	embedErr    error
	embeddings  map[string][]float32
	dims        int
	requests    []Request
	embedded    []string
}

// NewMockClient creates a mock that answers completions with responses in order.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{
		responses:  responses,
		embeddings: make(map[string][]float32),
		dims:       8,
	}
}

// NewMockClientWithError creates a mock whose calls all fail with msg.
func NewMockClientWithError(msg string) *MockClient {
	m := NewMockClient()
	err := fmt.Errorf("mock error: %s", msg)
	m.completeErr = err
	m.embedErr = err
	return m
}

// WithEmbedding registers the vector returned for text.
func (m *MockClient) WithEmbedding(text string, vec []float32) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embeddings[text] = vec
	return m
}

// WithCompleteError makes Complete fail while Embed keeps working.
func (m *MockClient) WithCompleteError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeErr = err
	return m
}

// WithEmbedError makes Embed fail while Complete keeps working.
func (m *MockClient) WithEmbedError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
	return m
}

// Complete implements Completer.
func (m *MockClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.completeErr != nil {
		return "", m.completeErr
	}
	if len(m.responses) == 0 {
		return "", errors.New("mock: no responses configured")
	}
	resp := m.responses[0]
	if len(m.responses) > 1 {
		m.responses = m.responses[1:]
	}
	return resp, nil
}

// Embed implements Embedder.
func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.embedded = append(m.embedded, text)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.embeddings[text]; ok {
		return vec, nil
	}
	return hashEmbedding(text, m.dims), nil
}

// Requests returns the completion requests seen so far.
func (m *MockClient) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.requests...)
}

// Embedded returns the texts passed to Embed so far.
func (m *MockClient) Embedded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.embedded...)
}

func hashEmbedding(text string, dims int) []float32 {
	vec := make([]float32, dims)
	for i := range vec {
		h := fnv.New32a()
		fmt.Fprintf(h, "%d:%s", i, text)
		vec[i] = float32(h.Sum32()%1000)/1000 - 0.5
	}
	return vec
}
