// Package ollama provides an llm.Client backed by a local Ollama server.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"

	"github.com/calque-ai/go-chronorag/pkg/llm"
)

// Client implements llm.Client with the Ollama chat and embed endpoints.
//
// Example:
//
//	client, _ := ollama.New("phi3:mini", "all-minilm")
//	text, err := client.Complete(ctx, llm.Request{Prompt: "hi"})
type Client struct {
	client     *api.Client
	chatModel  string
	embedModel string
	config     *Config
}

// Config holds Ollama-specific configuration.
type Config struct {
	// Optional. Ollama server host (defaults to OLLAMA_HOST or localhost:11434)
	Host string

	// Optional. Maximum number of tokens in the response
	MaxTokens *int

	// Optional. Model-specific options passed through verbatim
	Options map[string]any

	// Optional. HTTP client used for requests (defaults to http.DefaultClient)
	HTTPClient *http.Client
}

// Option configures the client.
type Option interface {
	Apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) Apply(c *Config) { f(c) }

// WithHost points the client at a specific server.
func WithHost(host string) Option {
	return optionFunc(func(c *Config) { c.Host = host })
}

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return optionFunc(func(c *Config) { *c = *config })
}

// WithHTTPClient sets the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *Config) { c.HTTPClient = hc })
}

// DefaultConfig returns defaults that resolve the host from the environment.
func DefaultConfig() *Config {
	return &Config{}
}

// New creates a client for chatModel completions and embedModel embeddings.
//
// Input: chat model, embedding model, options
// Output: *Client, error
// Behavior: an empty host falls back to api.ClientFromEnvironment (OLLAMA_HOST)
func New(chatModel, embedModel string, opts ...Option) (*Client, error) {
	if chatModel == "" || embedModel == "" {
		return nil, fmt.Errorf("ollama: chat and embed models are required")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	var client *api.Client
	if config.Host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("failed to create client from environment: %w", err)
		}
		client = c
	} else {
		u, err := url.Parse(config.Host)
		if err != nil {
			return nil, fmt.Errorf("invalid host URL: %w", err)
		}
		hc := config.HTTPClient
		if hc == nil {
			hc = http.DefaultClient
		}
		client = api.NewClient(u, hc)
	}

	return &Client{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		config:     config,
	}, nil
}

// Complete sends a single non-streaming chat request.
func (o *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	chatReq, err := o.buildChatRequest(req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	err = o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		sb.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama chat: %w", err)
	}
	return sb.String(), nil
}

// Embed returns the embedding of text.
func (o *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.embedModel,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama embed: empty response")
	}
	return resp.Embeddings[0], nil
}

// Ping checks that the server is reachable.
func (o *Client) Ping(ctx context.Context) error {
	return o.client.Heartbeat(ctx)
}

func (o *Client) buildChatRequest(req llm.Request) (*api.ChatRequest, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: o.chatModel,
		Messages: []api.Message{
			{Role: "user", Content: req.Prompt},
		},
		Stream:  &stream,
		Options: make(map[string]any),
	}

	for key, value := range o.config.Options {
		chatReq.Options[key] = value
	}
	if o.config.MaxTokens != nil {
		chatReq.Options["num_predict"] = *o.config.MaxTokens
	}
	// The request temperature wins over configured options.
	if req.Temperature != nil {
		chatReq.Options["temperature"] = *req.Temperature
	}

	if req.Format != nil {
		schema, err := req.Format.SchemaJSON()
		if err != nil {
			return nil, err
		}
		if schema == nil {
			schema = json.RawMessage(`"json"`)
		}
		chatReq.Format = schema
	}
	return chatReq, nil
}
