// Package similar finds historical issues resembling new issue text. Both
// the embedding capability and the vector index are external; this adapter
// only embeds, queries, filters, sorts and truncates. Similarity search is
// enrichment: every failure degrades to an empty result, never an error.
package similar

import (
	"context"
	"log"
	"sort"

	"triagebot/internal/domain"
)

// Embedder turns text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index answers nearest-neighbor queries over previously indexed issues.
type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]domain.SimilarityMatch, error)
}

// Searcher wires an embedder to an index with a score threshold.
type Searcher struct {
	embedder  Embedder
	index     Index
	topK      int
	threshold float64
}

func New(embedder Embedder, index Index, topK int, threshold float64) *Searcher {
	if topK <= 0 {
		topK = 5
	}
	return &Searcher{embedder: embedder, index: index, topK: topK, threshold: threshold}
}

// Search returns up to topK matches at or above the threshold, ordered by
// similarity descending. An unavailable embedder or index yields an empty
// slice with a log line, not an error.
func (s *Searcher) Search(ctx context.Context, text string) []domain.SimilarityMatch {
	if s.embedder == nil || s.index == nil {
		return nil
	}

	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		log.Printf("similarity search degraded: embed failed: %v", err)
		return nil
	}

	candidates, err := s.index.Query(ctx, vector, s.topK)
	if err != nil {
		log.Printf("similarity search degraded: index query failed: %v", err)
		return nil
	}

	matches := candidates[:0:0]
	for _, m := range candidates {
		if m.Similarity >= s.threshold {
			matches = append(matches, m)
		}
	}
	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Similarity > matches[b].Similarity
	})
	if len(matches) > s.topK {
		matches = matches[:s.topK]
	}
	return matches
}
