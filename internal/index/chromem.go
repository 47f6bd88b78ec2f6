// Package index wraps an embedded chromem-go vector store as the backing
// index for similarity search. The index is rebuilt from classification
// history on startup and on a schedule; it is a cache over the history
// table, not a source of truth.
package index

import (
	"context"
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/philippgille/chromem-go"

	"triagebot/internal/domain"
	"triagebot/internal/engine/similar"
)

const collectionName = "issues"

const excerptLen = 160

// Index implements similar.Index over a chromem collection. The mutex
// guards the collection pointer, which the scheduled rebuild swaps while
// request goroutines query; chromem only protects each collection's
// internals, not the swap.
type Index struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embedder   similar.Embedder
}

// New creates an empty in-memory index. The embedder is used both for
// documents at indexing time and as the collection's embedding function.
func New(embedder similar.Embedder) (*Index, error) {
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, nil, embeddingFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Index{db: db, collection: collection, embedder: embedder}, nil
}

// Rebuild replaces the collection contents with the given historical issues.
// Embedding happens before the swap so queries are only blocked for the
// delete-recreate-insert window.
func (ix *Index) Rebuild(ctx context.Context, issues []domain.HistoricalIssue) error {
	docs, err := ix.buildDocs(ctx, issues)
	if err != nil {
		return err
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if err := ix.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("reset collection: %w", err)
	}
	collection, err := ix.db.GetOrCreateCollection(collectionName, nil, embeddingFunc(ix.embedder))
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	ix.collection = collection
	if len(docs) == 0 {
		return nil
	}
	if err := collection.AddDocuments(ctx, docs, addConcurrency(len(docs))); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	return nil
}

// Add indexes additional issues without clearing existing documents.
func (ix *Index) Add(ctx context.Context, issues []domain.HistoricalIssue) error {
	docs, err := ix.buildDocs(ctx, issues)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if err := ix.collection.AddDocuments(ctx, docs, addConcurrency(len(docs))); err != nil {
		return fmt.Errorf("index documents: %w", err)
	}
	return nil
}

func (ix *Index) buildDocs(ctx context.Context, issues []domain.HistoricalIssue) ([]chromem.Document, error) {
	docs := make([]chromem.Document, 0, len(issues))
	for _, issue := range issues {
		content := issue.Title
		if issue.Description != "" {
			content += "\n" + issue.Description
		}
		vector, err := ix.embedder.Embed(ctx, content)
		if err != nil {
			return nil, fmt.Errorf("embed issue %s: %w", issue.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:        issue.ID,
			Content:   content,
			Embedding: vector,
			Metadata: map[string]string{
				"title":    issue.Title,
				"category": string(issue.Category),
			},
		})
	}
	return docs, nil
}

func addConcurrency(n int) int {
	if n > 10 {
		return 4
	}
	return 1
}

// Query returns the nearest indexed issues for a vector. chromem rejects
// queries asking for more results than documents, so topK is clamped first.
func (ix *Index) Query(ctx context.Context, vector []float32, topK int) ([]domain.SimilarityMatch, error) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := ix.collection.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	matches := make([]domain.SimilarityMatch, 0, len(results))
	for _, r := range results {
		matches = append(matches, domain.SimilarityMatch{
			ID:         r.ID,
			Title:      r.Metadata["title"],
			Excerpt:    excerpt(r.Content),
			Similarity: domain.ClampConfidence(float64(r.Similarity)),
			Collection: collectionName,
		})
	}
	return matches, nil
}

// Count reports how many issues are currently indexed.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.collection.Count()
}

func embeddingFunc(embedder similar.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
}

// excerpt shortens content for match previews, cutting on a rune boundary so
// multi-byte text is never split mid-character.
func excerpt(s string) string {
	if len(s) <= excerptLen {
		return s
	}
	cut := excerptLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
