package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"triagebot/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "triagebot-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestAppendAndListCorrections(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := domain.Correction{
		OriginalText:      "cannot find sql mi in west europe",
		OriginalCategory:  domain.CategoryTechnicalSupport,
		CorrectedCategory: domain.CategoryServiceAvailability,
		CorrectedIntent:   domain.IntentReportingProblem,
		Rationale:         "regional availability gap, not a how-to question",
	}
	second := domain.Correction{
		OriginalText:      "need connector for power platform",
		OriginalCategory:  domain.CategoryTechnicalSupport,
		CorrectedCategory: domain.CategoryFeatureRequest,
		CorrectedIntent:   domain.IntentRequestingFeature,
	}
	if err := store.AppendCorrection(ctx, first); err != nil {
		t.Fatalf("AppendCorrection #1 failed: %v", err)
	}
	if err := store.AppendCorrection(ctx, second); err != nil {
		t.Fatalf("AppendCorrection #2 failed: %v", err)
	}

	got, err := store.ListCorrections(ctx)
	if err != nil {
		t.Fatalf("ListCorrections failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 corrections, got %d", len(got))
	}
	if got[0].OriginalText != first.OriginalText {
		t.Fatalf("expected insertion order, got %q first", got[0].OriginalText)
	}
	if got[0].ID == 0 || got[1].ID <= got[0].ID {
		t.Fatalf("expected monotonically increasing IDs, got %d then %d", got[0].ID, got[1].ID)
	}
	if got[0].CorrectedCategory != domain.CategoryServiceAvailability {
		t.Fatalf("unexpected corrected category: %q", got[0].CorrectedCategory)
	}
	if got[0].CorrectedAt.IsZero() {
		t.Fatal("expected corrected_at to be populated")
	}
}

func TestAppendCorrectionRejectsInvalid(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name string
		c    domain.Correction
	}{
		{
			name: "empty text",
			c: domain.Correction{
				OriginalCategory:  domain.CategoryTechnicalSupport,
				CorrectedCategory: domain.CategoryFeatureRequest,
			},
		},
		{
			name: "no-op correction",
			c: domain.Correction{
				OriginalText:      "some issue",
				OriginalCategory:  domain.CategoryFeatureRequest,
				CorrectedCategory: domain.CategoryFeatureRequest,
			},
		},
		{
			name: "unknown category",
			c: domain.Correction{
				OriginalText:      "some issue",
				OriginalCategory:  domain.CategoryTechnicalSupport,
				CorrectedCategory: domain.Category("billing"),
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.AppendCorrection(ctx, tc.c)
			var verr *domain.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *domain.ValidationError, got %v", err)
			}
		})
	}

	got, err := store.ListCorrections(ctx)
	if err != nil {
		t.Fatalf("ListCorrections failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected rejected corrections to leave the log empty, got %d rows", len(got))
	}
}

func TestRecordClassificationAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	issues := []struct {
		id     string
		input  domain.IssueInput
		result domain.ClassificationResult
	}{
		{
			id:    "a1",
			input: domain.IssueInput{Title: "SQL MI outage", Description: "sql managed instance down in west europe"},
			result: domain.ClassificationResult{
				Category:   domain.CategoryServiceAvailability,
				Intent:     domain.IntentReportingProblem,
				Confidence: 0.91,
				Impact:     domain.ImpactCritical,
				Source:     domain.SourceHybrid,
			},
		},
		{
			id:    "a2",
			input: domain.IssueInput{Title: "Teams training"},
			result: domain.ClassificationResult{
				Category:   domain.CategoryTrainingDocs,
				Intent:     domain.IntentSeekingTraining,
				Confidence: 0.55,
				Impact:     domain.ImpactLow,
				Source:     domain.SourceHeuristic,
			},
		},
	}
	for _, it := range issues {
		if err := store.RecordClassification(ctx, it.id, it.input, it.result); err != nil {
			t.Fatalf("RecordClassification %s failed: %v", it.id, err)
		}
	}

	hist, err := store.ListHistoricalIssues(ctx, 10)
	if err != nil {
		t.Fatalf("ListHistoricalIssues failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 historical issues, got %d", len(hist))
	}
	byID := make(map[string]domain.HistoricalIssue, len(hist))
	for _, h := range hist {
		byID[h.ID] = h
	}
	if byID["a1"].Category != domain.CategoryServiceAvailability {
		t.Fatalf("unexpected category for a1: %q", byID["a1"].Category)
	}
	if byID["a1"].Description != "sql managed instance down in west europe" {
		t.Fatalf("unexpected description for a1: %q", byID["a1"].Description)
	}

	limited, err := store.ListHistoricalIssues(ctx, 1)
	if err != nil {
		t.Fatalf("ListHistoricalIssues with limit failed: %v", err)
	}
	if len(limited) != 1 {
		t.Fatalf("expected limit to cap results, got %d", len(limited))
	}
}

func TestStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	confidences := []float64{0.30, 0.55, 0.80, 0.95}
	for i, conf := range confidences {
		err := store.RecordClassification(ctx,
			time.Now().Format("20060102")+string(rune('a'+i)),
			domain.IssueInput{Title: "issue"},
			domain.ClassificationResult{
				Category:   domain.CategoryTechnicalSupport,
				Intent:     domain.IntentSeekingGuidance,
				Confidence: conf,
				Impact:     domain.ImpactLow,
				Source:     domain.SourceHeuristic,
			})
		if err != nil {
			t.Fatalf("RecordClassification failed: %v", err)
		}
	}
	if err := store.AppendCorrection(ctx, domain.Correction{
		OriginalText:      "need connector",
		OriginalCategory:  domain.CategoryTechnicalSupport,
		CorrectedCategory: domain.CategoryFeatureRequest,
	}); err != nil {
		t.Fatalf("AppendCorrection failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalClassifications != 4 {
		t.Fatalf("expected 4 classifications, got %d", stats.TotalClassifications)
	}
	if stats.TotalCorrections != 1 {
		t.Fatalf("expected 1 correction, got %d", stats.TotalCorrections)
	}
	if stats.BucketBelow50 != 1 || stats.Bucket50to70 != 1 || stats.Bucket70to90 != 1 || stats.Bucket90Plus != 1 {
		t.Fatalf("unexpected bucket distribution: %+v", stats)
	}
	want := (0.30 + 0.55 + 0.80 + 0.95) / 4
	if diff := stats.AvgConfidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected avg confidence %f, got %f", want, stats.AvgConfidence)
	}
}

func TestStatsEmptyDatabase(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats on empty db failed: %v", err)
	}
	if stats.TotalClassifications != 0 || stats.AvgConfidence != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}
