// Package openai provides an llm.Client backed by the OpenAI API or any
// OpenAI-compatible endpoint.
package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/openai/openai-go/v2/shared/constant"

	"github.com/calque-ai/go-chronorag/pkg/llm"
)

// Client implements llm.Client with chat completions and embeddings.
type Client struct {
	client     openai.Client
	chatModel  shared.ChatModel
	embedModel openai.EmbeddingModel
	config     *Config
}

// Config holds OpenAI-specific configuration.
type Config struct {
	// Required. API key (defaults to OPENAI_API_KEY)
	APIKey string

	// Optional. Base URL for OpenAI-compatible servers
	BaseURL string

	// Optional. Maximum completion tokens
	MaxTokens *int

	// Optional. Extra request options, e.g. option.WithHTTPClient in tests
	RequestOptions []option.RequestOption
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

// WithBaseURL targets an OpenAI-compatible server.
func WithBaseURL(u string) Option {
	return optionFunc(func(c *Config) { c.BaseURL = u })
}

// WithRequestOptions appends raw SDK request options.
func WithRequestOptions(opts ...option.RequestOption) Option {
	return optionFunc(func(c *Config) { c.RequestOptions = append(c.RequestOptions, opts...) })
}

// DefaultConfig reads the API key from the environment.
func DefaultConfig() *Config {
	return &Config{APIKey: os.Getenv("OPENAI_API_KEY")}
}

// New creates a client.
//
// Example:
//
//	client, err := openai.New("gpt-4o-mini", "text-embedding-3-small", openai.WithAPIKey(key))
func New(chatModel, embedModel string, opts ...Option) (*Client, error) {
	if chatModel == "" || embedModel == "" {
		return nil, fmt.Errorf("openai: chat and embed models are required")
	}

	config := DefaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set or provided in config")
	}

	clientOptions := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		clientOptions = append(clientOptions, option.WithBaseURL(config.BaseURL))
	}
	clientOptions = append(clientOptions, config.RequestOptions...)

	return &Client{
		client:     openai.NewClient(clientOptions...),
		chatModel:  shared.ChatModel(chatModel),
		embedModel: openai.EmbeddingModel(embedModel),
		config:     config,
	}, nil
}

// Complete sends one chat completion request.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	params, err := c.buildChatParams(req)
	if err != nil {
		return "", err
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: c.embedModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	src := resp.Data[0].Embedding
	vec := make([]float32, len(src))
	for i, v := range src {
		vec[i] = float32(v)
	}
	return vec, nil
}

func (c *Client) buildChatParams(req llm.Request) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if c.config.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*c.config.MaxTokens))
	}

	if req.Format != nil {
		schema, err := req.Format.SchemaMap()
		if err != nil {
			return params, err
		}
		if schema == nil {
			params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{Type: constant.JSONObject("").Default()},
			}
			return params, nil
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				Type: constant.JSONSchema("").Default(),
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   req.Format.Name,
					Schema: schema,
				},
			},
		}
	}
	return params, nil
}
