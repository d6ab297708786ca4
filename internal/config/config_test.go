package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "initial_corpus", cfg.RAG.CollectionName)
	assert.Equal(t, "chromadb_data", cfg.RAG.PersistDir)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, "ANTHROPIC_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 800, cfg.Tutor.Answer.MaxTokens)
	assert.InDelta(t, 0.75, cfg.Tutor.Answer.Temperature, 1e-9)
	assert.Equal(t, 2000, cfg.Tutor.Quiz.MaxTokens)
	assert.Equal(t, "fr", cfg.Tutor.DefaultLanguage)
	assert.Empty(t, cfg.Database.Driver)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
llm:
  provider: openai
  base_url: https://openrouter.ai/api/v1
rag:
  chunk_size: 500
  chunk_overlap: 50
tutor:
  subject: history
database:
  driver: sqlite
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.LLM.APIKeyEnv)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, "history", cfg.Tutor.Subject)
	assert.Contains(t, cfg.Tutor.Traits, "Genuinely enthusiastic about history")
	assert.Equal(t, "tutor_history.db", cfg.Database.DSN)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: mystery\n"), 0o644))

	_, err := Load(path)
	require.ErrorIs(t, err, ErrConfiguration)
}

func TestOverlapClampedBelowChunkSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag:\n  chunk_size: 200\n  chunk_overlap: 400\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Less(t, cfg.RAG.ChunkOverlap, cfg.RAG.ChunkSize)
}

func TestResolveAPIKey(t *testing.T) {
	c := LLMConfig{Provider: "anthropic", APIKeyEnv: "RAG_TUTOR_TEST_KEY"}

	t.Setenv("RAG_TUTOR_TEST_KEY", "")
	_, err := c.ResolveAPIKey()
	require.ErrorIs(t, err, ErrConfiguration)

	t.Setenv("RAG_TUTOR_TEST_KEY", "Bearer sk-123")
	key, err := c.ResolveAPIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-123", key)

	local := LLMConfig{Provider: "ollama"}
	key, err = local.ResolveAPIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}
