package cache

import (
	"testing"
	"time"

	"triagebot/internal/domain"
)

func sampleResult() domain.ClassificationResult {
	return domain.ClassificationResult{
		Category:   domain.CategoryFeatureRequest,
		Intent:     domain.IntentRequestingFeature,
		Confidence: 0.95,
		Impact:     domain.ImpactHigh,
		Source:     domain.SourceLLM,
	}
}

func TestGetAndPut(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}

	c.Put("k1", sampleResult())
	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected hit after Put")
	}
	if got.Category != domain.CategoryFeatureRequest || got.Confidence != 0.95 {
		t.Fatalf("unexpected cached result: %+v", got)
	}
}

func TestExpiredEntriesMiss(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("k1", sampleResult())

	c.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok := c.Get("k1"); ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	c := New(time.Minute)
	base := time.Now()
	c.now = func() time.Time { return base }

	c.Put("old", sampleResult())

	c.now = func() time.Time { return base.Add(45 * time.Second) }
	c.Put("fresh", sampleResult())

	c.now = func() time.Time { return base.Add(90 * time.Second) }
	removed := c.Sweep()
	if removed != 1 {
		t.Fatalf("expected 1 entry removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry remaining, got %d", c.Len())
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Fatal("expected fresh entry to survive sweep")
	}
}

func TestPutOverwrites(t *testing.T) {
	c := New(time.Minute)

	c.Put("k1", sampleResult())
	updated := sampleResult()
	updated.Confidence = 0.42
	c.Put("k1", updated)

	got, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Confidence != 0.42 {
		t.Fatalf("expected overwrite, got confidence %f", got.Confidence)
	}
}
