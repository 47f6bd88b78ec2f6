package maintain

import (
	"context"
	"errors"
	"testing"
	"time"

	"triagebot/internal/domain"
)

type fakeSweeper struct {
	removed int
	calls   int
}

func (f *fakeSweeper) Sweep() int {
	f.calls++
	return f.removed
}

type fakeHistory struct {
	issues []domain.HistoricalIssue
	err    error
}

func (f *fakeHistory) ListHistoricalIssues(ctx context.Context, limit int) ([]domain.HistoricalIssue, error) {
	if f.err != nil {
		return nil, f.err
	}
	if limit > 0 && len(f.issues) > limit {
		return f.issues[:limit], nil
	}
	return f.issues, nil
}

type fakeIndex struct {
	rebuilt []domain.HistoricalIssue
	err     error
	calls   int
}

func (f *fakeIndex) Rebuild(ctx context.Context, issues []domain.HistoricalIssue) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	f.rebuilt = issues
	return nil
}

func (f *fakeIndex) Count() int { return len(f.rebuilt) }

func TestSweepCache(t *testing.T) {
	s := &fakeSweeper{removed: 3}
	SweepCache(s)
	if s.calls != 1 {
		t.Fatalf("expected 1 sweep, got %d", s.calls)
	}
}

func TestRebuildIndex(t *testing.T) {
	source := &fakeHistory{issues: []domain.HistoricalIssue{
		{ID: "h1", Title: "one"},
		{ID: "h2", Title: "two"},
	}}
	index := &fakeIndex{}

	RebuildIndex(context.Background(), source, index, 10)
	if len(index.rebuilt) != 2 {
		t.Fatalf("expected 2 issues indexed, got %d", len(index.rebuilt))
	}
}

func TestRebuildIndexSkipsOnHistoryFailure(t *testing.T) {
	source := &fakeHistory{err: errors.New("db locked")}
	index := &fakeIndex{}

	RebuildIndex(context.Background(), source, index, 10)
	if index.calls != 0 {
		t.Fatal("expected no rebuild when history load fails")
	}
}

func TestRebuildIndexAbsorbsRebuildFailure(t *testing.T) {
	source := &fakeHistory{issues: []domain.HistoricalIssue{{ID: "h1"}}}
	index := &fakeIndex{err: errors.New("embed failed")}

	RebuildIndex(context.Background(), source, index, 10)
	if index.calls != 1 {
		t.Fatalf("expected 1 rebuild attempt, got %d", index.calls)
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	_, err := Start(Schedules{CacheSweep: "not a schedule"}, &fakeSweeper{}, nil, nil)
	if err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestStartWithValidSchedules(t *testing.T) {
	c, err := Start(Schedules{
		CacheSweep:   "@every 15m",
		IndexRebuild: "@hourly",
		HistoryLimit: 100,
		JobTimeout:   time.Second,
	}, &fakeSweeper{}, &fakeHistory{}, &fakeIndex{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer c.Stop()

	if len(c.Entries()) != 2 {
		t.Fatalf("expected 2 scheduled jobs, got %d", len(c.Entries()))
	}
}
