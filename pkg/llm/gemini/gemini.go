// Package gemini provides an llm.Client backed by Google's Gemini API.
package gemini

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"github.com/calque-ai/go-chronorag/pkg/llm"
)

const applicationJSON = "application/json"

// Client implements llm.Client with GenerateContent and EmbedContent.
type Client struct {
	client     *genai.Client
	chatModel  string
	embedModel string
	config     *Config
}

// Config holds Gemini-specific configuration.
type Config struct {
	// Required. API key (defaults to GOOGLE_API_KEY)
	APIKey string

	// Optional. Maximum output tokens
	MaxTokens *int32

	// Optional. Overrides the API endpoint
	BaseURL string
}

// Option configures the client.
type Option interface {
	Apply(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) Apply(c *Config) { f(c) }

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return optionFunc(func(c *Config) { c.APIKey = key })
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *Config) { c.BaseURL = u })
}

// DefaultConfig reads the API key from the environment.
func DefaultConfig() *Config {
	return &Config{APIKey: os.Getenv("GOOGLE_API_KEY")}
}

// New creates a client.
//
// Example:
//
//	client, err := gemini.New("gemini-2.0-flash", "text-embedding-004")
func New(chatModel, embedModel string, opts ...Option) (*Client, error) {
	if chatModel == "" || embedModel == "" {
		return nil, fmt.Errorf("gemini: chat and embed models are required")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set or provided in config")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:     client,
		chatModel:  chatModel,
		embedModel: embedModel,
		config:     config,
	}, nil
}

// Complete generates one response.
func (g *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.chatModel, genai.Text(req.Prompt), g.buildGenerateConfig(req))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return resp.Text(), nil
}

// Embed returns the embedding of text.
func (g *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}
	if len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embeddings[0].Values, nil
}

func (g *Client) buildGenerateConfig(req llm.Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if g.config.MaxTokens != nil {
		config.MaxOutputTokens = *g.config.MaxTokens
	}
	if req.Format != nil {
		config.ResponseMIMEType = applicationJSON
		if req.Format.Schema != nil {
			config.ResponseJsonSchema = req.Format.Schema
		}
	}
	return config
}
