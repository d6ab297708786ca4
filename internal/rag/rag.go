package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"rag-tutor/internal/models"
)

const DefaultTopK = 3

// Index is the part of a collection the retriever reads from.
type Index interface {
	Count() int
	Query(ctx context.Context, queryText string, k int) ([]models.QueryResult, error)
}

type Retriever struct {
	index Index
	topK  int
}

func NewRetriever(index Index, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, topK: topK}
}

// Retrieve returns up to k chunks ranked by similarity to question. k <= 0
// uses the retriever's default. An empty index yields no chunks.
func (r *Retriever) Retrieve(ctx context.Context, question string, k int) ([]models.QueryResult, error) {
	if k <= 0 {
		k = r.topK
	}
	if r.index.Count() == 0 {
		return nil, nil
	}
	results, err := r.index.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Debug().Int("k", k).Int("results", len(results)).Msg("Retrieved chunks")
	return results, nil
}

// RetrieveContext joins the retrieved chunks into one context text and
// returns their sources in the same order.
func (r *Retriever) RetrieveContext(ctx context.Context, question string, k int) (string, []string, error) {
	results, err := r.Retrieve(ctx, question, k)
	if err != nil {
		return "", nil, err
	}

	texts := make([]string, len(results))
	sources := make([]string, len(results))
	for i, res := range results {
		texts[i] = res.Content
		sources[i] = res.Source
	}
	return strings.Join(texts, models.ContextSeparator), sources, nil
}
