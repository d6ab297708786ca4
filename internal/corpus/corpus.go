// Package corpus owns the ingestion lifecycle of the tutoring collection.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"rag-tutor/internal/chromemdb"
	"rag-tutor/internal/chunker"
	"rag-tutor/internal/helper"
	"rag-tutor/internal/models"
	"rag-tutor/internal/parser"
)

type Manager struct {
	store     *chromemdb.VectorDBManager
	splitter  *chunker.Splitter
	name      string
	corpusDir string
}

func NewManager(store *chromemdb.VectorDBManager, splitter *chunker.Splitter, collectionName, corpusDir string) *Manager {
	return &Manager{
		store:     store,
		splitter:  splitter,
		name:      collectionName,
		corpusDir: corpusDir,
	}
}

// Collection resolves the persistent collection, creating it empty if needed.
func (m *Manager) Collection() (*chromemdb.Collection, error) {
	coll, _, err := m.store.GetOrCreateCollection(m.name)
	return coll, err
}

// InitializeCorpus loads the collection, or creates it and ingests every
// supported file of the corpus directory. An existing collection is returned
// unchanged, so repeated runs never ingest twice.
func (m *Manager) InitializeCorpus(ctx context.Context) (*chromemdb.Collection, error) {
	coll, created, err := m.store.GetOrCreateCollection(m.name)
	if err != nil {
		return nil, err
	}
	if !created {
		log.Info().Str("collection", m.name).Int("chunks", coll.Count()).Msg("Loaded existing collection")
		return coll, nil
	}

	if err := helper.CreateFolder(m.corpusDir); err != nil {
		return nil, err
	}
	files, err := m.scan()
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		n, err := m.IngestDocument(ctx, path, coll)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping document")
			continue
		}
		log.Info().Str("file", filepath.Base(path)).Int("chunks", n).Msg("Ingested document")
	}
	log.Info().Str("collection", m.name).Int("chunks", coll.Count()).Msg("Initialized corpus")
	return coll, nil
}

func (m *Manager) scan() ([]string, error) {
	entries, err := os.ReadDir(m.corpusDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !parser.Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(m.corpusDir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// IngestDocument extracts, chunks and stores one document. A nil coll resolves
// the persistent collection first. It returns the number of chunks added.
func (m *Manager) IngestDocument(ctx context.Context, path string, coll *chromemdb.Collection) (int, error) {
	if coll == nil {
		var err error
		if coll, err = m.Collection(); err != nil {
			return 0, err
		}
	}

	pages, err := parser.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	text := strings.Join(pages, models.PageSeparator)
	if strings.TrimSpace(text) == "" {
		return 0, errors.New("document has no text: " + filepath.Base(path))
	}

	source := filepath.Base(path)
	var chunks []models.Chunk
	for content := range m.splitter.Chunks(text) {
		chunks = append(chunks, models.Chunk{
			Content: content,
			Source:  source,
			Page:    len(chunks),
		})
	}

	if _, err := coll.Add(ctx, chunks); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", source, err)
	}
	return len(chunks), nil
}
