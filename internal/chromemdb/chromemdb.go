package chromemdb

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"rag-tutor/internal/models"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db            *chromem.DB
	embed         chromem.EmbeddingFunc
	dbPath        string
	compress      bool
	encryptionKey string
}

// Collection is a named, persistent set of chunks with their embeddings.
// Chunk IDs are doc_0, doc_1, ... in insertion order.
type Collection struct {
	c *chromem.Collection
}

var collectionMetadata = map[string]string{
	"hnsw:space": "cosine",
}

// NewVectorDBManager opens the database at dbPath, loading any collections
// persisted there. An in-memory database ignores dbPath.
func NewVectorDBManager(dbPath string, inMemory, compress bool, encryptionKey string, embed chromem.EmbeddingFunc) (*VectorDBManager, error) {
	if embed == nil {
		return nil, errors.New("an embedding function is required")
	}
	if encryptionKey != "" && len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes, got %d", len(encryptionKey))
	}

	var db *chromem.DB
	var err error
	if inMemory {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("failed to create database: %w", err)
		}
	}

	return &VectorDBManager{
		db:            db,
		embed:         embed,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
	}, nil
}

// GetOrCreateCollection returns the collection called name, creating an empty
// one if it does not exist. created reports which branch was taken.
func (m *VectorDBManager) GetOrCreateCollection(name string) (coll *Collection, created bool, err error) {
	if c := m.db.GetCollection(name, m.embed); c != nil {
		return &Collection{c: c}, false, nil
	}
	c, err := m.db.CreateCollection(name, collectionMetadata, m.embed)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create collection %s: %w", name, err)
	}
	log.Debug().Str("collection", name).Msg("Created collection")
	return &Collection{c: c}, true, nil
}

// Export writes the named collections (all when none given) to filePath,
// gzip-compressed and AES-encrypted according to the manager settings.
func (m *VectorDBManager) Export(filePath string, collections ...string) error {
	log.Debug().Str("file", filePath).Bool("compress", m.compress).Strs("collections", collections).Msg("Exporting collections")
	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, collections...); err != nil {
		return fmt.Errorf("failed to export database: %w", err)
	}
	return nil
}

// Import loads the named collections (all when none given) from filePath.
func (m *VectorDBManager) Import(filePath string, collections ...string) error {
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, collections...); err != nil {
		return fmt.Errorf("failed to import database: %w", err)
	}
	return nil
}

// ChunkID returns the identifier of the n-th chunk of a collection.
func ChunkID(n int) string {
	return models.ChunkIDPrefix + strconv.Itoa(n)
}

func (c *Collection) Name() string {
	return c.c.Name
}

func (c *Collection) Count() int {
	return c.c.Count()
}

// Add embeds and stores chunks with IDs continuing from the current count.
// Either every chunk is stored or none is: documents inserted before a failed
// embedding are removed again. It fails if the collection did not grow by
// exactly len(chunks).
func (c *Collection) Add(ctx context.Context, chunks []models.Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	offset := c.c.Count()
	ids := make([]string, len(chunks))
	docs := make([]chromem.Document, len(chunks))
	for i, chunk := range chunks {
		ids[i] = ChunkID(offset + i)
		docs[i] = chromem.Document{
			ID:      ids[i],
			Content: chunk.Content,
			Metadata: map[string]string{
				models.MetaSource: chunk.Source,
				models.MetaPage:   strconv.Itoa(chunk.Page),
			},
		}
	}

	if err := c.c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		if rerr := c.c.Delete(context.WithoutCancel(ctx), nil, nil, ids...); rerr != nil {
			log.Error().Err(rerr).Str("collection", c.c.Name).Msg("Failed to roll back partial add")
			return nil, errors.Join(fmt.Errorf("failed to add documents: %w", err), rerr)
		}
		return nil, fmt.Errorf("failed to add documents: %w", err)
	}
	if got, want := c.c.Count(), offset+len(chunks); got != want {
		return ids, fmt.Errorf("collection %s holds %d chunks after adding, want %d", c.c.Name, got, want)
	}
	return ids, nil
}

// Query returns up to k chunks ranked by similarity to queryText. An empty
// collection yields no results; callers decide whether that is an error.
func (c *Collection) Query(ctx context.Context, queryText string, k int) ([]models.QueryResult, error) {
	if queryText == "" {
		return nil, errors.New("query text must be provided")
	}
	count := c.c.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}

	results, err := c.c.Query(ctx, queryText, min(k, count), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query by similarity: %w", err)
	}

	out := make([]models.QueryResult, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[models.MetaPage])
		out = append(out, models.QueryResult{
			ID:         r.ID,
			Content:    r.Content,
			Source:     r.Metadata[models.MetaSource],
			Page:       page,
			Similarity: r.Similarity,
		})
	}
	return out, nil
}
