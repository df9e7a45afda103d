// Package config builds the single immutable configuration used by a
// chronorag process.
//
// Values are resolved once at start-up in this order, later sources winning:
// built-in defaults, an optional YAML file named by CHRONORAG_CONFIG, a .env
// file, and finally the process environment. The resulting Config is passed
// by value into constructors; nothing reads the environment after Load returns.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/calque-ai/go-chronorag/pkg/helpers"
	"github.com/calque-ai/go-chronorag/pkg/logging"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// FileEnv names the environment variable holding an optional YAML config path.
const FileEnv = "CHRONORAG_CONFIG"

// LLM providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Index backends.
const (
	BackendQdrant   = "qdrant"
	BackendPGVector = "pgvector"
	BackendWeaviate = "weaviate"
	BackendBadger   = "badger"
)

// Config holds every tunable of the pipeline.
type Config struct {
	LLMProvider   string `yaml:"llm_provider"`
	ChatModel     string `yaml:"chat_model"`
	EmbedModel    string `yaml:"embed_model"`
	OllamaHost    string `yaml:"ollama_host"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`
	GeminiAPIKey  string `yaml:"gemini_api_key"`

	IndexBackend string `yaml:"index_backend"`
	IndexURL     string `yaml:"index_url"`
	IndexAPIKey  string `yaml:"index_api_key"`
	Collection   string `yaml:"collection"`
	BadgerPath   string `yaml:"badger_path"`

	// TopK is the number of documents handed to the answer prompt.
	TopK int `yaml:"top_k"`
	// FetchMultiplier oversamples the index query to TopK*FetchMultiplier candidates.
	FetchMultiplier int `yaml:"fetch_multiplier"`
	// Lambda trades relevance (1) against diversity (0) during MMR selection.
	Lambda            float64 `yaml:"mmr_lambda"`
	AnswerTemperature float64 `yaml:"answer_temperature"`
	ContextSeparator  string  `yaml:"context_separator"`

	RequestTimeout time.Duration `yaml:"request_timeout"`

	LogLevel     string `yaml:"log_level"`
	LogFormat    string `yaml:"log_format"`
	MetricsAddr  string `yaml:"metrics_addr"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPProtocol string `yaml:"otlp_protocol"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LLMProvider:       ProviderOllama,
		ChatModel:         "phi3:mini",
		EmbedModel:        "all-minilm",
		OllamaHost:        "http://localhost:11434",
		IndexBackend:      BackendQdrant,
		IndexURL:          "http://localhost:6334",
		Collection:        "rag_urls",
		TopK:              4,
		FetchMultiplier:   4,
		Lambda:            0.5,
		AnswerTemperature: 0,
		ContextSeparator:  "\n\n---\n\n",
		RequestTimeout:    2 * time.Minute,
		LogLevel:          "info",
		LogFormat:         logging.FormatText,
		OTLPProtocol:      "grpc",
	}
}

// Load resolves the configuration and validates it.
//
// Input: optional .env file paths (defaults to ".env"); missing files are ignored
// Output: validated Config or an error
//
// Example:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	if path := os.Getenv(FileEnv); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = FromYAML(data, cfg); err != nil {
			return Config{}, err
		}
	}

	cfg = FromEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromYAML overlays the keys present in data onto base.
func FromYAML(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// FromEnv overlays environment variables onto base.
func FromEnv(base Config) Config {
	c := base
	c.LLMProvider = helpers.GetStringFromEnv("LLM_PROVIDER", c.LLMProvider)
	c.ChatModel = helpers.GetStringFromEnv("CHAT_MODEL", c.ChatModel)
	c.EmbedModel = helpers.GetStringFromEnv("EMBED_MODEL", c.EmbedModel)
	c.OllamaHost = helpers.GetStringFromEnv("OLLAMA_BASE_URL", c.OllamaHost)
	c.OpenAIAPIKey = helpers.GetStringFromEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = helpers.GetStringFromEnv("OPENAI_BASE_URL", c.OpenAIBaseURL)
	c.GeminiAPIKey = helpers.GetStringFromEnv("GOOGLE_API_KEY", c.GeminiAPIKey)

	c.IndexBackend = helpers.GetStringFromEnv("INDEX_BACKEND", c.IndexBackend)
	c.IndexURL = helpers.GetStringFromEnv("INDEX_URL", c.IndexURL)
	c.IndexAPIKey = helpers.GetStringFromEnv("INDEX_API_KEY", c.IndexAPIKey)
	c.Collection = helpers.GetStringFromEnv("COLLECTION", c.Collection)
	c.BadgerPath = helpers.GetStringFromEnv("BADGER_PATH", c.BadgerPath)

	c.TopK = helpers.GetIntFromEnv("TOP_K", c.TopK)
	c.FetchMultiplier = helpers.GetIntFromEnv("FETCH_MULTIPLIER", c.FetchMultiplier)
	c.Lambda = helpers.GetFloatFromEnv("MMR_LAMBDA", c.Lambda)
	c.AnswerTemperature = helpers.GetFloatFromEnv("ANSWER_TEMPERATURE", c.AnswerTemperature)
	c.ContextSeparator = helpers.GetStringFromEnv("CONTEXT_SEPARATOR", c.ContextSeparator)
	c.RequestTimeout = helpers.GetDurationFromEnv("REQUEST_TIMEOUT", c.RequestTimeout)

	c.LogLevel = helpers.GetStringFromEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = helpers.GetStringFromEnv("LOG_FORMAT", c.LogFormat)
	c.MetricsAddr = helpers.GetStringFromEnv("METRICS_ADDR", c.MetricsAddr)
	c.OTLPEndpoint = helpers.GetStringFromEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.OTLPEndpoint)
	c.OTLPProtocol = helpers.GetStringFromEnv("OTEL_EXPORTER_OTLP_PROTOCOL", c.OTLPProtocol)
	return c
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	switch {
	case c.TopK < 1:
		return fmt.Errorf("%w: top_k must be >= 1, got %d", ErrInvalidConfig, c.TopK)
	case c.FetchMultiplier < 1:
		return fmt.Errorf("%w: fetch_multiplier must be >= 1, got %d", ErrInvalidConfig, c.FetchMultiplier)
	case c.Lambda < 0 || c.Lambda > 1:
		return fmt.Errorf("%w: mmr_lambda must be in [0,1], got %v", ErrInvalidConfig, c.Lambda)
	case c.RequestTimeout < 0:
		return fmt.Errorf("%w: request_timeout must not be negative", ErrInvalidConfig)
	}

	switch c.LLMProvider {
	case ProviderOllama, ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: unknown llm_provider %q", ErrInvalidConfig, c.LLMProvider)
	}
	switch c.IndexBackend {
	case BackendQdrant, BackendPGVector, BackendWeaviate, BackendBadger:
	default:
		return fmt.Errorf("%w: unknown index_backend %q", ErrInvalidConfig, c.IndexBackend)
	}
	switch c.LogFormat {
	case logging.FormatText, logging.FormatJSON, logging.FormatZerolog:
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.OTLPProtocol {
	case "grpc", "http":
	default:
		return fmt.Errorf("%w: unknown otlp_protocol %q", ErrInvalidConfig, c.OTLPProtocol)
	}
	return nil
}

// FetchK is the number of candidates requested from the index per query.
func (c Config) FetchK() int {
	return c.TopK * c.FetchMultiplier
}
