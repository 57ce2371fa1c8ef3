package config

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Wizard provides an interactive configuration wizard
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
}

// NewWizard creates a wizard reading answers from in and writing prompts to out.
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks for the provider, its credentials, models and search defaults.
func (w *Wizard) Run() (*Config, error) {
	fmt.Fprintln(w.out, "=== toolflow configuration ===")
	fmt.Fprintln(w.out)

	cfg := DefaultConfig()
	validator := NewValidator()

	for {
		provider, err := w.ask("Model provider (openai/azure/anthropic)", cfg.Provider)
		if err != nil {
			return nil, err
		}
		if err := validator.ValidateProvider(provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		cfg.Provider = provider
		break
	}

	switch cfg.Provider {
	case "anthropic":
		key, err := w.askKey("Anthropic API Key", "anthropic", validator)
		if err != nil {
			return nil, err
		}
		cfg.Anthropic.APIKey = key
		if cfg.Anthropic.Model, err = w.ask("Chat model", cfg.Anthropic.Model); err != nil {
			return nil, err
		}

		// embeddings always come from OpenAI
		fmt.Fprintln(w.out, "Semantic search embeds text with OpenAI.")
		if cfg.OpenAI.APIKey, err = w.ask("OpenAI API Key (press Enter to skip)", ""); err != nil {
			return nil, err
		}
	case "azure":
		var err error
		if cfg.OpenAI.AzureEndpoint, err = w.ask("Azure OpenAI endpoint", ""); err != nil {
			return nil, err
		}
		if err := validator.ValidateURL("azure endpoint", cfg.OpenAI.AzureEndpoint); err != nil || cfg.OpenAI.AzureEndpoint == "" {
			return nil, fmt.Errorf("a valid Azure OpenAI endpoint is required")
		}
		if cfg.OpenAI.APIKey, err = w.ask("Azure OpenAI API Key", ""); err != nil {
			return nil, err
		}
		if cfg.OpenAI.Model, err = w.ask("Chat deployment", cfg.OpenAI.Model); err != nil {
			return nil, err
		}
		if cfg.OpenAI.EmbeddingModel, err = w.ask("Embedding deployment", cfg.OpenAI.EmbeddingModel); err != nil {
			return nil, err
		}
	default:
		key, err := w.askKey("OpenAI API Key", "openai", validator)
		if err != nil {
			return nil, err
		}
		cfg.OpenAI.APIKey = key
		if cfg.OpenAI.Model, err = w.ask("Chat model", cfg.OpenAI.Model); err != nil {
			return nil, err
		}
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Semantic search:")
	size, err := w.askInt("Chunk size", cfg.Search.ChunkSize)
	if err != nil {
		return nil, err
	}
	overlap, err := w.askInt("Chunk overlap", cfg.Search.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateChunking(size, overlap); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, using defaults\n", err)
	} else {
		cfg.Search.ChunkSize, cfg.Search.ChunkOverlap = size, overlap
	}

	fmt.Fprintln(w.out)
	level, err := w.ask("Log level (debug/info/warn/error)", cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := validator.ValidateLogLevel(level); err != nil {
		fmt.Fprintf(w.out, "Warning: %v, using default (info)\n", err)
	} else {
		cfg.Logging.Level = level
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Configuration complete!")

	return cfg, nil
}

func (w *Wizard) askKey(prompt, provider string, validator *Validator) (string, error) {
	for {
		key, err := w.ask(prompt, "")
		if err != nil {
			return "", err
		}
		if err := validator.ValidateAPIKey(key, provider); err != nil {
			fmt.Fprintf(w.out, "Error: %v\n", err)
			continue
		}
		return key, nil
	}
}

func (w *Wizard) askInt(prompt string, def int) (int, error) {
	answer, err := w.ask(prompt, strconv.Itoa(def))
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		fmt.Fprintf(w.out, "Warning: %q is not a number, using %d\n", answer, def)
		return def, nil
	}
	return n, nil
}

func (w *Wizard) ask(prompt, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(w.out, "%s [%s]: ", prompt, def)
	} else {
		fmt.Fprintf(w.out, "%s: ", prompt)
	}

	line, err := w.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return def, nil
	}
	return line, nil
}
