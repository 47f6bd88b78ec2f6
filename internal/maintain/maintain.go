// Package maintain runs the background upkeep jobs: sweeping expired cache
// entries and rebuilding the similarity index from classification history.
package maintain

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"triagebot/internal/domain"
)

// Sweeper is the cache's upkeep surface.
type Sweeper interface {
	Sweep() int
}

// HistorySource provides the issues the index is rebuilt from.
type HistorySource interface {
	ListHistoricalIssues(ctx context.Context, limit int) ([]domain.HistoricalIssue, error)
}

// Rebuilder is the index's upkeep surface.
type Rebuilder interface {
	Rebuild(ctx context.Context, issues []domain.HistoricalIssue) error
	Count() int
}

// SweepCache drops expired cache entries. Exposed for direct invocation in
// tests; the scheduler calls it on a timer.
func SweepCache(c Sweeper) {
	if removed := c.Sweep(); removed > 0 {
		log.Printf("Cache sweep removed %d expired entries", removed)
	}
}

// RebuildIndex reloads recent history into the similarity index. Failures
// are logged and the previous index contents stay in service.
func RebuildIndex(ctx context.Context, source HistorySource, index Rebuilder, limit int) {
	issues, err := source.ListHistoricalIssues(ctx, limit)
	if err != nil {
		log.Printf("Index rebuild skipped, history load failed: %v", err)
		return
	}
	if err := index.Rebuild(ctx, issues); err != nil {
		log.Printf("Index rebuild failed: %v", err)
		return
	}
	log.Printf("Similarity index rebuilt with %d issues", index.Count())
}

// Schedules configures the upkeep cron entries.
type Schedules struct {
	CacheSweep   string
	IndexRebuild string
	HistoryLimit int
	JobTimeout   time.Duration
}

// Start registers the jobs and starts the scheduler. A nil cache or index
// disables the corresponding job. The returned cron can be stopped on
// shutdown.
func Start(s Schedules, cache Sweeper, source HistorySource, index Rebuilder) (*cron.Cron, error) {
	if s.JobTimeout <= 0 {
		s.JobTimeout = time.Minute
	}
	c := cron.New()

	if cache != nil && s.CacheSweep != "" {
		if _, err := c.AddFunc(s.CacheSweep, func() { SweepCache(cache) }); err != nil {
			return nil, err
		}
		log.Printf("Cache sweep scheduled (cron: %s)", s.CacheSweep)
	}

	if index != nil && source != nil && s.IndexRebuild != "" {
		if _, err := c.AddFunc(s.IndexRebuild, func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.JobTimeout)
			defer cancel()
			RebuildIndex(ctx, source, index, s.HistoryLimit)
		}); err != nil {
			return nil, err
		}
		log.Printf("Index rebuild scheduled (cron: %s)", s.IndexRebuild)
	}

	c.Start()
	return c, nil
}
