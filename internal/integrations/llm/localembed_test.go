package llm

import (
	"context"
	"math"
	"testing"
)

func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(128)
	ctx := context.Background()

	first, err := e.Embed(ctx, "SQL Managed Instance availability in West Europe")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	second, _ := e.Embed(ctx, "SQL Managed Instance availability in West Europe")

	for i := range first {
		if first[i] != second[i] {
			t.Fatal("expected identical embeddings for identical text")
		}
	}
}

func TestLocalEmbedderUnitLength(t *testing.T) {
	e := NewLocalEmbedder(128)
	vec, err := e.Embed(context.Background(), "quota increase for production workloads")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Fatalf("expected unit-length vector, got squared norm %f", sum)
	}
}

func TestLocalEmbedderSimilarTextScoresHigher(t *testing.T) {
	e := NewLocalEmbedder(256)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "sql managed instance outage west europe")
	near, _ := e.Embed(ctx, "sql managed instance unavailable in west europe region")
	far, _ := e.Embed(ctx, "teams tutorial and training material request")

	if cosine(query, near) <= cosine(query, far) {
		t.Fatalf("expected lexically similar text to score higher: near=%f far=%f",
			cosine(query, near), cosine(query, far))
	}
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	e := NewLocalEmbedder(64)
	vec, err := e.Embed(context.Background(), "")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	if len(vec) != 64 {
		t.Fatalf("expected fixed-length vector, got %d", len(vec))
	}
}
