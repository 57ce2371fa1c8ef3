package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/harun/toolflow/pkg/vectorstore"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultEmbeddingModel produces 1536-dimension vectors.
const DefaultEmbeddingModel = "text-embedding-ada-002"

// OpenAIEmbedder implements vectorstore.Embedder with the embeddings endpoint.
type OpenAIEmbedder struct {
	client    openai.Client
	model     string
	dimension int
}

// NewOpenAIEmbedder creates an embedder for cfg.Model, or DefaultEmbeddingModel.
func NewOpenAIEmbedder(cfg OpenAIConfig, opts ...option.RequestOption) *OpenAIEmbedder {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	dimension := vectorstore.DefaultVectorLength
	if model == "text-embedding-3-large" {
		dimension = 3072
	}

	return &OpenAIEmbedder{
		client:    openai.NewClient(cfg.requestOptions(opts)...),
		model:     model,
		dimension: dimension,
	}
}

// EmbedderName is the persisted name of an OpenAI embedder for model.
func EmbedderName(model string) string {
	return "openai:" + model
}

// Name implements vectorstore.Embedder.
func (e *OpenAIEmbedder) Name() string {
	return EmbedderName(e.model)
}

// VectorLength implements vectorstore.Embedder.
func (e *OpenAIEmbedder) VectorLength() int {
	return e.dimension
}

// Embed implements vectorstore.Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to call embeddings API: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}
	vector := resp.Data[0].Embedding
	if len(vector) != e.dimension {
		return nil, fmt.Errorf("embedding has %d values, expected %d", len(vector), e.dimension)
	}
	return vector, nil
}

// RegisterEmbedders registers OpenAI embedders for the known models and makes the 1536-dimension
// default model the registry fallback.
func RegisterEmbedders(registry *vectorstore.EmbedderRegistry, cfg OpenAIConfig, opts ...option.RequestOption) {
	for _, model := range []string{DefaultEmbeddingModel, "text-embedding-3-small", "text-embedding-3-large"} {
		modelCfg := cfg
		modelCfg.Model = model
		registry.Register(EmbedderName(model), func() (vectorstore.Embedder, error) {
			return NewOpenAIEmbedder(modelCfg, opts...), nil
		})
	}

	if cfg.Model != "" {
		registry.Register(EmbedderName(cfg.Model), func() (vectorstore.Embedder, error) {
			return NewOpenAIEmbedder(cfg, opts...), nil
		})
	}

	defaultCfg := cfg
	defaultCfg.Model = DefaultEmbeddingModel
	registry.SetDefault(func() (vectorstore.Embedder, error) {
		return NewOpenAIEmbedder(defaultCfg, opts...), nil
	})
}

var _ vectorstore.Embedder = (*OpenAIEmbedder)(nil)
