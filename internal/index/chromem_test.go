package index

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"triagebot/internal/domain"
	"triagebot/internal/integrations/llm"
)

func historicalIssues() []domain.HistoricalIssue {
	now := time.Now()
	return []domain.HistoricalIssue{
		{
			ID:          "hist-1",
			Title:       "SQL Managed Instance outage in West Europe",
			Description: "sql managed instance unavailable west europe region",
			Category:    domain.CategoryServiceAvailability,
			AnalyzedAt:  now,
		},
		{
			ID:          "hist-2",
			Title:       "Teams training material",
			Description: "looking for teams tutorial and training documentation",
			Category:    domain.CategoryTrainingDocs,
			AnalyzedAt:  now,
		},
	}
}

func TestIndexAddAndQuery(t *testing.T) {
	embedder := llm.NewLocalEmbedder(256)
	ix, err := New(embedder)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := ix.Add(ctx, historicalIssues()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if ix.Count() != 2 {
		t.Fatalf("expected 2 indexed issues, got %d", ix.Count())
	}

	vector, err := embedder.Embed(ctx, "sql managed instance availability west europe")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	matches, err := ix.Query(ctx, vector, 5)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].ID != "hist-1" {
		t.Fatalf("expected the availability issue to rank first, got %s", matches[0].ID)
	}
	for _, m := range matches {
		if m.Similarity < 0 || m.Similarity > 1 {
			t.Errorf("similarity out of range for %s: %f", m.ID, m.Similarity)
		}
		if m.Collection != "issues" {
			t.Errorf("unexpected collection tag %q", m.Collection)
		}
	}
}

func TestQueryEmptyIndex(t *testing.T) {
	ix, err := New(llm.NewLocalEmbedder(64))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	matches, err := ix.Query(context.Background(), make([]float32, 64), 5)
	if err != nil {
		t.Fatalf("Query on empty index should not fail: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no matches, got %d", len(matches))
	}
}

func TestConcurrentRebuildAndQuery(t *testing.T) {
	embedder := llm.NewLocalEmbedder(64)
	ix, err := New(embedder)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := ix.Add(ctx, historicalIssues()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	vector, err := embedder.Embed(ctx, "sql managed instance availability")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if err := ix.Rebuild(ctx, historicalIssues()); err != nil {
				t.Errorf("Rebuild failed: %v", err)
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			if _, err := ix.Query(ctx, vector, 2); err != nil {
				t.Errorf("Query failed: %v", err)
				return
			}
			_ = ix.Count()
		}
	}()

	time.Sleep(300 * time.Millisecond)
	close(done)
	wg.Wait()

	if ix.Count() != 2 {
		t.Fatalf("expected 2 indexed issues after concurrent churn, got %d", ix.Count())
	}
}

func TestExcerptKeepsRuneBoundaries(t *testing.T) {
	long := strings.Repeat("世", excerptLen)

	got := excerpt(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected truncation marker, got %q", got)
	}
	for _, r := range got {
		if r == '�' {
			t.Fatal("excerpt split a multi-byte rune")
		}
	}
}

func TestRebuildReplacesContents(t *testing.T) {
	ix, err := New(llm.NewLocalEmbedder(64))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := ix.Add(ctx, historicalIssues()); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := ix.Rebuild(ctx, historicalIssues()[:1]); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	if ix.Count() != 1 {
		t.Fatalf("expected rebuild to replace contents, count=%d", ix.Count())
	}
}
