package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks configuration that cannot be used to build the tutor.
var ErrConfiguration = errors.New("configuration error")

type Config struct {
	LLM       LLMConfig      `yaml:"llm"`
	Embedding LLMConfig      `yaml:"embedding"`
	RAG       RAGConfig      `yaml:"rag"`
	Tutor     TutorConfig    `yaml:"tutor"`
	Database  DatabaseConfig `yaml:"database"`
	Server    ServerConfig   `yaml:"server"`
	LogLevel  string         `yaml:"log_level"`
}

// LLMConfig describes a hosted model endpoint, used both for completions and embeddings.
type LLMConfig struct {
	Provider  string `yaml:"provider"` // anthropic, openai, ollama, gemini
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type RAGConfig struct {
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	TopK           int    `yaml:"top_k"`
	CollectionName string `yaml:"collection_name"`
	PersistDir     string `yaml:"persist_dir"`
	CorpusDir      string `yaml:"corpus_dir"`
	InMemory       bool   `yaml:"in_memory"`
	Compress       bool   `yaml:"compress"`
	EncryptionKey  string `yaml:"encryption_key"`
}

type GenerationConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type TutorConfig struct {
	Subject           string           `yaml:"subject"`
	Traits            []string         `yaml:"traits"`
	DefaultLanguage   string           `yaml:"default_language"`
	DefaultDifficulty string           `yaml:"default_difficulty"`
	Answer            GenerationConfig `yaml:"answer"`
	Quiz              GenerationConfig `yaml:"quiz"`
}

// DatabaseConfig configures the quiz history archive. An empty driver disables it.
type DatabaseConfig struct {
	Driver      string `yaml:"driver"` // sqlite, postgres
	DSN         string `yaml:"dsn"`
	PasswordEnv string `yaml:"password_env"`
	Debug       bool   `yaml:"debug"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

const (
	defaultChunkSize      = 1000
	defaultChunkOverlap   = 100
	defaultTopK           = 3
	defaultCollectionName = "initial_corpus"
	defaultPersistDir     = "chromadb_data"
	defaultCorpusDir      = "initial_corpus"
)

// Load reads the yaml file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "anthropic"
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case "anthropic":
			cfg.LLM.Model = "claude-3-5-haiku-20241022"
		case "openai":
			cfg.LLM.Model = "gpt-4o-mini"
		case "gemini":
			cfg.LLM.Model = "gemini-2.5-flash"
		case "ollama":
			cfg.LLM.Model = "llama3.1"
		}
	}
	if cfg.LLM.APIKeyEnv == "" {
		cfg.LLM.APIKeyEnv = defaultKeyEnv(cfg.LLM.Provider)
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		case "gemini":
			cfg.Embedding.Model = "text-embedding-004"
		default:
			cfg.Embedding.Model = "nomic-embed-text"
		}
	}
	if cfg.Embedding.BaseURL == "" && cfg.Embedding.Provider == "ollama" {
		cfg.Embedding.BaseURL = "http://localhost:11434"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = defaultKeyEnv(cfg.Embedding.Provider)
	}

	if cfg.RAG.ChunkSize <= 0 {
		cfg.RAG.ChunkSize = defaultChunkSize
	}
	if cfg.RAG.ChunkOverlap <= 0 {
		cfg.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		cfg.RAG.ChunkOverlap = cfg.RAG.ChunkSize / 10
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG.TopK = defaultTopK
	}
	if cfg.RAG.CollectionName == "" {
		cfg.RAG.CollectionName = defaultCollectionName
	}
	if cfg.RAG.PersistDir == "" {
		cfg.RAG.PersistDir = defaultPersistDir
	}
	if cfg.RAG.CorpusDir == "" {
		cfg.RAG.CorpusDir = defaultCorpusDir
	}

	if cfg.Tutor.Subject == "" {
		cfg.Tutor.Subject = "economics"
	}
	if len(cfg.Tutor.Traits) == 0 {
		cfg.Tutor.Traits = []string{
			"Warm and welcoming",
			"Genuinely enthusiastic about " + cfg.Tutor.Subject,
			"Encouraging and supportive",
			"Patient and understanding",
			"Interested in student's perspectives",
		}
	}
	if cfg.Tutor.DefaultLanguage == "" {
		cfg.Tutor.DefaultLanguage = "fr"
	}
	if cfg.Tutor.DefaultDifficulty == "" {
		cfg.Tutor.DefaultDifficulty = "intermediate"
	}
	if cfg.Tutor.Answer.MaxTokens <= 0 {
		cfg.Tutor.Answer.MaxTokens = 800
	}
	if cfg.Tutor.Answer.Temperature == 0 {
		cfg.Tutor.Answer.Temperature = 0.75
	}
	if cfg.Tutor.Quiz.MaxTokens <= 0 {
		cfg.Tutor.Quiz.MaxTokens = 2000
	}
	if cfg.Tutor.Quiz.Temperature == 0 {
		cfg.Tutor.Quiz.Temperature = 0.7
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.DSN == "" {
		cfg.Database.DSN = "tutor_history.db"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

func defaultKeyEnv(provider string) string {
	switch provider {
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	}
	return ""
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "anthropic", "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("%w: unknown llm provider %q", ErrConfiguration, c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case "openai", "ollama", "gemini":
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrConfiguration, c.Embedding.Provider)
	}
	switch c.Database.Driver {
	case "", "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrConfiguration, c.Database.Driver)
	}
	return nil
}

// RequiresKey reports whether the provider needs a credential.
func (c LLMConfig) RequiresKey() bool {
	return c.Provider != "ollama"
}

// ResolveAPIKey reads the credential named by APIKeyEnv from the environment.
func (c LLMConfig) ResolveAPIKey() (string, error) {
	if !c.RequiresKey() {
		return "", nil
	}
	if c.APIKeyEnv == "" {
		return "", fmt.Errorf("%w: no api_key_env configured for provider %s", ErrConfiguration, c.Provider)
	}
	key := strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	if key == "" {
		return "", fmt.Errorf("%w: missing API key in env %s", ErrConfiguration, c.APIKeyEnv)
	}
	return strings.TrimPrefix(key, "Bearer "), nil
}

// DatabasePassword returns the password named by PasswordEnv, if any.
func (c DatabaseConfig) DatabasePassword() string {
	if c.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(c.PasswordEnv)
}
