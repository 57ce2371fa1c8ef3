package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "anthropic":
		if !strings.HasPrefix(key, "sk-ant-") {
			return fmt.Errorf("invalid Anthropic API key format (should start with sk-ant-)")
		}
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateProvider validates the chat model provider
func (v *Validator) ValidateProvider(provider string) error {
	return oneOf("provider", provider, []string{"openai", "azure", "anthropic"})
}

// ValidateURL validates an optional endpoint URL
func (v *Validator) ValidateURL(name, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	return oneOf("log level", level, []string{"debug", "info", "warn", "error"})
}

// ValidateChunking validates the text splitter settings
func (v *Validator) ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return nil
}

// ValidateListenAddr validates a host:port listen address
func (v *Validator) ValidateListenAddr(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	return nil
}

// ValidateHook checks that a hook names a known event and a script
func (v *Validator) ValidateHook(hook HookConfig) error {
	if err := oneOf("hook event", hook.Event, []string{"run:start", "run:success", "run:error", "index:complete"}); err != nil {
		return err
	}
	if strings.TrimSpace(hook.Script) == "" {
		return fmt.Errorf("hook script cannot be empty")
	}
	if hook.Timeout < 0 {
		return fmt.Errorf("hook timeout must be >= 0")
	}
	return nil
}

// ValidateConfig performs comprehensive validation and reports every problem found
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateProvider(cfg.Provider); err != nil {
		errors = append(errors, err)
	}
	if cfg.OpenAI.APIKey != "" && cfg.Provider == "openai" {
		if err := v.ValidateAPIKey(cfg.OpenAI.APIKey, "openai"); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Anthropic.APIKey != "" {
		if err := v.ValidateAPIKey(cfg.Anthropic.APIKey, "anthropic"); err != nil {
			errors = append(errors, err)
		}
	}

	if err := v.ValidateURL("openai.base_url", cfg.OpenAI.BaseURL); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateURL("openai.azure_endpoint", cfg.OpenAI.AzureEndpoint); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateURL("anthropic.base_url", cfg.Anthropic.BaseURL); err != nil {
		errors = append(errors, err)
	}
	if cfg.Anthropic.MaxTokens < 0 {
		errors = append(errors, fmt.Errorf("anthropic.max_tokens must be >= 0"))
	}

	if err := v.ValidateChunking(cfg.Search.ChunkSize, cfg.Search.ChunkOverlap); err != nil {
		errors = append(errors, err)
	}
	if cfg.Search.MaxResults <= 0 {
		errors = append(errors, fmt.Errorf("search.max_results must be positive"))
	}
	if cfg.Search.Parallelism < 0 {
		errors = append(errors, fmt.Errorf("search.parallelism must be >= 0"))
	}

	if cfg.Engine.Workers < 0 {
		errors = append(errors, fmt.Errorf("engine.workers must be >= 0"))
	}
	if cfg.Engine.Timeout < 0 {
		errors = append(errors, fmt.Errorf("engine.timeout must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Metrics.Enabled {
		if err := v.ValidateListenAddr(cfg.Metrics.Addr); err != nil {
			errors = append(errors, err)
		}
	}
	for i, hook := range cfg.Hooks {
		if err := v.ValidateHook(hook); err != nil {
			errors = append(errors, fmt.Errorf("hooks[%d]: %w", i, err))
		}
	}

	return errors
}

func oneOf(name, value string, valid []string) error {
	for _, candidate := range valid {
		if value == candidate {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s (must be one of: %s)", name, value, strings.Join(valid, ", "))
}
