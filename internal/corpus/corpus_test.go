package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/philippgille/chromem-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-tutor/internal/chromemdb"
	"rag-tutor/internal/chunker"
	"rag-tutor/internal/embedding/embeddingtest"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newManager(t *testing.T, persistDir, corpusDir string) *Manager {
	t.Helper()
	store, err := chromemdb.NewVectorDBManager(persistDir, false, false, "", embeddingtest.Func())
	require.NoError(t, err)
	return NewManager(store, chunker.New(200, 20), "initial_corpus", corpusDir)
}

func paragraph(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func TestInitializeCorpusIsIdempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	corpusDir := filepath.Join(root, "corpus")
	persistDir := filepath.Join(root, "store")
	require.NoError(t, os.MkdirAll(corpusDir, 0o755))
	writeFile(t, corpusDir, "markets.txt", paragraph("market", 80))
	writeFile(t, corpusDir, "money.md", "# Money\n\n"+paragraph("money", 60))
	writeFile(t, corpusDir, "notes.csv", "ignored,content")

	coll, err := newManager(t, persistDir, corpusDir).InitializeCorpus(ctx)
	require.NoError(t, err)
	first := coll.Count()
	require.Positive(t, first)

	coll, err = newManager(t, persistDir, corpusDir).InitializeCorpus(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, coll.Count())
}

func TestInitializeCorpusCreatesMissingDirectory(t *testing.T) {
	root := t.TempDir()
	corpusDir := filepath.Join(root, "corpus")

	coll, err := newManager(t, filepath.Join(root, "store"), corpusDir).InitializeCorpus(context.Background())
	require.NoError(t, err)
	assert.Zero(t, coll.Count())
	assert.DirExists(t, corpusDir)
}

func TestIngestDocumentContinuesIDs(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m := newManager(t, filepath.Join(root, "store"), root)
	first := writeFile(t, root, "a.txt", paragraph("alpha", 100))
	second := writeFile(t, root, "b.txt", paragraph("beta", 100))

	n, err := m.IngestDocument(ctx, first, nil)
	require.NoError(t, err)
	require.Positive(t, n)

	coll, err := m.Collection()
	require.NoError(t, err)
	offset := coll.Count()
	require.Equal(t, n, offset)

	added, err := m.IngestDocument(ctx, second, coll)
	require.NoError(t, err)
	assert.Equal(t, offset+added, coll.Count())

	results, err := coll.Query(ctx, "beta", coll.Count())
	require.NoError(t, err)
	var ids []string
	for _, r := range results {
		if r.Source == "b.txt" {
			ids = append(ids, r.ID)
		}
	}
	var want []string
	for i := range added {
		want = append(want, chromemdb.ChunkID(offset+i))
	}
	assert.ElementsMatch(t, want, ids)
}

func TestIngestDocumentPageMetadata(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m := newManager(t, filepath.Join(root, "store"), root)
	path := writeFile(t, root, "gamma.txt", paragraph("gamma", 120))

	n, err := m.IngestDocument(ctx, path, nil)
	require.NoError(t, err)

	coll, err := m.Collection()
	require.NoError(t, err)
	results, err := coll.Query(ctx, "gamma", n)
	require.NoError(t, err)
	pages := map[int]bool{}
	for _, r := range results {
		assert.Equal(t, "gamma.txt", r.Source)
		pages[r.Page] = true
	}
	for i := range n {
		assert.True(t, pages[i], "page %d missing", i)
	}
}

func TestIngestDocumentErrors(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	m := newManager(t, filepath.Join(root, "store"), root)

	_, err := m.IngestDocument(ctx, writeFile(t, root, "data.csv", "a,b"), nil)
	assert.Error(t, err)

	_, err = m.IngestDocument(ctx, writeFile(t, root, "blank.txt", "  \n "), nil)
	assert.Error(t, err)

	_, err = m.IngestDocument(ctx, filepath.Join(root, "missing.txt"), nil)
	assert.Error(t, err)
}

func TestIngestDocumentEmbeddingFailureLeavesCollectionUnchanged(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	embed := embeddingtest.Func()
	flaky := func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "broken") {
			return nil, errors.New("embedding provider unavailable")
		}
		return embed(ctx, text)
	}
	store, err := chromemdb.NewVectorDBManager(filepath.Join(root, "store"), false, false, "", chromem.EmbeddingFunc(flaky))
	require.NoError(t, err)
	m := NewManager(store, chunker.New(200, 20), "initial_corpus", root)

	first, err := m.IngestDocument(ctx, writeFile(t, root, "a.txt", paragraph("alpha", 100)), nil)
	require.NoError(t, err)
	coll, err := m.Collection()
	require.NoError(t, err)
	require.Equal(t, first, coll.Count())

	bad := writeFile(t, root, "b.txt", paragraph("beta", 100)+" broken "+paragraph("beta", 100))
	_, err = m.IngestDocument(ctx, bad, coll)
	require.Error(t, err)
	assert.Equal(t, first, coll.Count())

	added, err := m.IngestDocument(ctx, writeFile(t, root, "c.txt", paragraph("gamma", 100)), coll)
	require.NoError(t, err)
	assert.Equal(t, first+added, coll.Count())

	results, err := coll.Query(ctx, "alpha gamma", coll.Count())
	require.NoError(t, err)
	bySource := map[string][]string{}
	for _, r := range results {
		bySource[r.Source] = append(bySource[r.Source], r.ID)
	}
	assert.NotContains(t, bySource, "b.txt")
	var wantA, wantC []string
	for i := range first {
		wantA = append(wantA, chromemdb.ChunkID(i))
	}
	for i := range added {
		wantC = append(wantC, chromemdb.ChunkID(first+i))
	}
	assert.ElementsMatch(t, wantA, bySource["a.txt"])
	assert.ElementsMatch(t, wantC, bySource["c.txt"])
}
