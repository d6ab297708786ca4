package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/philippgille/chromem-go"
	"google.golang.org/api/option"

	"rag-tutor/internal/config"
)

// GeminiEmbedder embeds text with a Gemini embedding model.
type GeminiEmbedder struct {
	client *genai.Client
	model  *genai.EmbeddingModel
}

func NewGemini(ctx context.Context, cfg config.LLMConfig) (*GeminiEmbedder, error) {
	key, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client, model: client.EmbeddingModel(cfg.Model)}, nil
}

// Func adapts the embedder to chromem. It stops working once Close is called.
func (g *GeminiEmbedder) Func() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := g.model.EmbedContent(ctx, genai.Text(text))
		if err != nil {
			return nil, fmt.Errorf("failed to embed text: %w", err)
		}
		if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
			return nil, errors.New("embedding provider returned an empty vector")
		}
		values := make([]float32, len(resp.Embedding.Values))
		for i, v := range resp.Embedding.Values {
			values[i] = float32(v)
		}
		return values, nil
	}
}

func (g *GeminiEmbedder) Close() error {
	return g.client.Close()
}
