package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-tutor/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := config.Default()
	cfg.RAG.InMemory = true
	cfg.RAG.PersistDir = filepath.Join(root, "store")
	cfg.RAG.CorpusDir = filepath.Join(root, "corpus")
	cfg.LLM.APIKeyEnv = "RAG_TUTOR_TEST_KEY"
	return cfg
}

func TestNewAppMissingKeyFailsBeforeCorpus(t *testing.T) {
	t.Setenv("RAG_TUTOR_TEST_KEY", "")
	cfg := testConfig(t)

	_, err := newApp(context.Background(), cfg, appOptions{initCorpus: true, llm: true})
	require.ErrorIs(t, err, config.ErrConfiguration)
	assert.NoDirExists(t, cfg.RAG.CorpusDir)
}

func TestNewAppWithoutLLMInitializesCorpus(t *testing.T) {
	t.Setenv("RAG_TUTOR_TEST_KEY", "")
	cfg := testConfig(t)

	a, err := newApp(context.Background(), cfg, appOptions{initCorpus: true})
	require.NoError(t, err)
	defer a.Close()
	assert.DirExists(t, cfg.RAG.CorpusDir)
	assert.Zero(t, a.coll.Count())
	assert.Nil(t, a.tutor)
}

func TestAppCloseReleasesGeminiClients(t *testing.T) {
	t.Setenv("RAG_TUTOR_TEST_KEY", "test-key")
	cfg := testConfig(t)
	cfg.LLM.Provider = "gemini"
	cfg.LLM.Model = "gemini-2.5-flash"
	cfg.Embedding = config.LLMConfig{Provider: "gemini", Model: "text-embedding-004", APIKeyEnv: "RAG_TUTOR_TEST_KEY"}

	a, err := newApp(context.Background(), cfg, appOptions{llm: true})
	require.NoError(t, err)
	assert.Len(t, a.closers, 2)
	assert.NotNil(t, a.tutor)

	a.Close()
	assert.Empty(t, a.closers)
}

func TestMain(m *testing.M) {
	setupLogging("error")
	os.Exit(m.Run())
}
