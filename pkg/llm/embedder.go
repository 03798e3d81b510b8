package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig configures the OpenAI embedding client.
type EmbedderConfig struct {
	APIKey string
	Model  string
}

// Embedder wraps the OpenAI embedding endpoint.
type Embedder struct {
	Config EmbedderConfig
	Embed  *openai.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}

	opts := []openai.Option{
		openai.WithEmbeddingModel(config.Model),
	}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}

	emb, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{
		Config: config,
		Embed:  emb,
	}, nil
}
