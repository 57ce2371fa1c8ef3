package config

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Config represents the toolflow configuration
type Config struct {
	// Provider selects the chat model backend: openai, azure or anthropic
	Provider string `json:"provider" mapstructure:"provider"`

	OpenAI    OpenAIConfig    `json:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `json:"anthropic" mapstructure:"anthropic"`

	Search SearchConfig `json:"search" mapstructure:"search"`
	Engine EngineConfig `json:"engine" mapstructure:"engine"`
	Cache  CacheConfig  `json:"cache" mapstructure:"cache"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Shell scripts run on run and index lifecycle events
	Hooks []HookConfig `json:"hooks,omitempty" mapstructure:"hooks"`

	// Data directory; stores, caches and logs live here
	DataDir string `json:"data_dir" mapstructure:"data_dir"`

	// Directory scanned for out-of-process tool modules
	PluginDir string `json:"plugin_dir" mapstructure:"plugin_dir"`
}

// OpenAIConfig holds OpenAI and Azure OpenAI settings
type OpenAIConfig struct {
	APIKey         string `json:"api_key" mapstructure:"api_key"`
	BaseURL        string `json:"base_url" mapstructure:"base_url"`
	Model          string `json:"model" mapstructure:"model"`
	EmbeddingModel string `json:"embedding_model" mapstructure:"embedding_model"`
	AzureEndpoint  string `json:"azure_endpoint" mapstructure:"azure_endpoint"`
	APIVersion     string `json:"api_version" mapstructure:"api_version"`
}

// AnthropicConfig holds Anthropic settings
type AnthropicConfig struct {
	APIKey    string `json:"api_key" mapstructure:"api_key"`
	BaseURL   string `json:"base_url" mapstructure:"base_url"`
	Model     string `json:"model" mapstructure:"model"`
	MaxTokens int    `json:"max_tokens" mapstructure:"max_tokens"`
}

// SearchConfig holds semantic search defaults
type SearchConfig struct {
	ChunkSize    int `json:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" mapstructure:"chunk_overlap"`
	MaxResults   int `json:"max_results" mapstructure:"max_results"`
	// Concurrent embedding calls while indexing
	Parallelism int `json:"parallelism" mapstructure:"parallelism"`
}

// EngineConfig holds graph execution settings
type EngineConfig struct {
	// Default map/reduce worker bound; 0 uses GOMAXPROCS
	Workers int `json:"workers" mapstructure:"workers"`
	// Deadline in seconds for model, embedding and HTTP calls made during a run; 0 disables it.
	// Tools already started always run to completion.
	Timeout int `json:"timeout" mapstructure:"timeout"`
}

// CacheConfig holds the embedding cache settings
type CacheConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Path    string `json:"path" mapstructure:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry span export settings
type TracingConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
	// Spans are appended to this file as JSON lines
	File string `json:"file" mapstructure:"file"`
}

// HookConfig binds a shell script to an event such as run:success
type HookConfig struct {
	ID      string `json:"id,omitempty" mapstructure:"id"`
	Event   string `json:"event" mapstructure:"event"`
	Script  string `json:"script" mapstructure:"script"`
	Timeout int    `json:"timeout,omitempty" mapstructure:"timeout"` // seconds
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Provider: "openai",
		OpenAI: OpenAIConfig{
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-ada-002",
			APIVersion:     "2024-06-01",
		},
		Anthropic: AnthropicConfig{
			Model:     "claude-3-5-haiku-latest",
			MaxTokens: 1024,
		},
		Search: SearchConfig{
			ChunkSize:    1000,
			ChunkOverlap: 100,
			MaxResults:   5,
			Parallelism:  4,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1:9464",
		},
	}
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	masked := *c
	masked.OpenAI.APIKey = mask(c.OpenAI.APIKey)
	masked.Anthropic.APIKey = mask(c.Anthropic.APIKey)
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

func mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

// Validate checks the settings needed to run recipes
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "azure":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("openai.api_key is required for provider %s", c.Provider)
		}
		if c.Provider == "azure" && c.OpenAI.AzureEndpoint == "" {
			return fmt.Errorf("openai.azure_endpoint is required for provider azure")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("anthropic.api_key is required for provider anthropic")
		}
	default:
		return fmt.Errorf("invalid provider %q (must be: openai, azure, anthropic)", c.Provider)
	}

	if c.Search.ChunkSize <= 0 {
		return fmt.Errorf("search.chunk_size must be positive")
	}
	if c.Search.ChunkOverlap < 0 || c.Search.ChunkOverlap >= c.Search.ChunkSize {
		return fmt.Errorf("search.chunk_overlap must be in [0, chunk_size)")
	}
	return nil
}
