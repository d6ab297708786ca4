package llmservice

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"rag-tutor/internal/config"
	"rag-tutor/internal/models"
)

// Completer turns a prompt into raw model text. Each call is a single attempt.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
}

// ProviderError reports a failed completion call (network, auth, rate limit).
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

var thinkTagRe = regexp.MustCompile(models.ThinkTag)

// New creates the completion client for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	if cfg.Provider == "gemini" {
		c, err := NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := NewLangChainClient(cfg)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// LangChainClient completes prompts through a langchaingo model.
type LangChainClient struct {
	provider string
	llm      llms.Model
}

func NewLangChainClient(cfg config.LLMConfig) (*LangChainClient, error) {
	log.Debug().Str("provider", cfg.Provider).Str("model", cfg.Model).Str("base_url", cfg.BaseURL).Msg("Creating completion client")

	key, err := cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	var llm llms.Model
	switch cfg.Provider {
	case "anthropic":
		opts := []anthropic.Option{anthropic.WithToken(key), anthropic.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		llm, err = anthropic.New(opts...)
	case "openai":
		opts := []openai.Option{openai.WithToken(key), openai.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err = openai.New(opts...)
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err = ollama.New(opts...)
	default:
		return nil, fmt.Errorf("%w: unsupported llm provider %q", config.ErrConfiguration, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s client: %w", cfg.Provider, err)
	}
	return NewFromModel(cfg.Provider, llm), nil
}

// NewFromModel wraps an already constructed langchaingo model.
func NewFromModel(provider string, llm llms.Model) *LangChainClient {
	return &LangChainClient{provider: provider, llm: llm}
}

func (c *LangChainClient) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: prompt}},
		},
	}

	resp, err := c.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(maxTokens),
		llms.WithTemperature(temperature),
	)
	if err != nil {
		return "", &ProviderError{Provider: c.provider, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: c.provider, Err: fmt.Errorf("no choices in response")}
	}

	log.Debug().Str("provider", c.provider).Str("stop_reason", resp.Choices[0].StopReason).Msg("Completion received")
	return strings.TrimSpace(thinkTagRe.ReplaceAllString(resp.Choices[0].Content, "")), nil
}
