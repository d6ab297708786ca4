package embedding

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"rag-tutor/internal/config"
)

// NewEmbedder creates the langchaingo embedder for the configured provider.
func NewEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	var client embeddings.EmbedderClient
	switch cfg.Provider {
	case "ollama":
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
		}
		client = llm
	case "openai":
		key, err := cfg.ResolveAPIKey()
		if err != nil {
			return nil, err
		}
		opts := []openai.Option{
			openai.WithToken(key),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
		}
		client = llm
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", config.ErrConfiguration, cfg.Provider)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

// New returns the embedding function used by the vector collection, and the
// client to close when done with it. The closer is nil when there is none.
func New(ctx context.Context, cfg config.LLMConfig) (chromem.EmbeddingFunc, io.Closer, error) {
	if cfg.Provider == "gemini" {
		g, err := NewGemini(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return g.Func(), g, nil
	}
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}
	return FromEmbedder(embedder), nil, nil
}

// FromEmbedder adapts a langchaingo embedder to chromem.
func FromEmbedder(e embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vector, err := e.EmbedQuery(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text: %w", err)
		}
		if len(vector) == 0 {
			return nil, errors.New("embedding provider returned an empty vector")
		}
		return vector, nil
	}
}
