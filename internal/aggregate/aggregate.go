// Package aggregate computes summary analytics over the stored event log.
// All rollups are derived on demand and recomputed per query; the event log
// remains the single source of truth and is never mutated here.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/store"
)

// DefaultTopPages is the top-N cutoff applied to page rankings.
const DefaultTopPages = 10

// Aggregator serves the analytics read path over an EventStore.
type Aggregator struct {
	store store.EventStore
	topN  int
}

// NewAggregator creates an aggregator with the default top-N cutoff.
func NewAggregator(eventStore store.EventStore) *Aggregator {
	return &Aggregator{
		store: eventStore,
		topN:  DefaultTopPages,
	}
}

// Summary computes the full rollup: page views, top pages, session count,
// and mean duration/engagement metrics. Zero recorded data yields a
// zero-valued summary, never an error.
func (a *Aggregator) Summary(ctx context.Context) (*models.Summary, error) {
	counts, err := a.store.PageViewCounts(ctx)
	if err != nil {
		return nil, err
	}

	durations, err := a.store.SessionDurations(ctx)
	if err != nil {
		return nil, err
	}

	averages, err := a.store.MetricAverages(ctx)
	if err != nil {
		return nil, err
	}

	totalSessions, err := a.store.DistinctSessions(ctx, time.Time{}, maxTime())
	if err != nil {
		return nil, err
	}

	summary := &models.Summary{
		PageViews:          counts,
		TopPages:           rankPages(counts, a.topN),
		TotalSessions:      totalSessions,
		AveragePageTime:    averages.TimeOnPage,
		AverageScrollDepth: averages.ScrollDepth,
	}
	if len(durations) > 0 {
		var sum float64
		for _, d := range durations {
			sum += d
		}
		summary.AverageSessionDuration = sum / float64(len(durations))
	}

	return summary, nil
}

// TopPages returns per-page view counts sorted descending by count, cut off
// at the aggregator's top-N.
func (a *Aggregator) TopPages(ctx context.Context) ([]models.PageCount, error) {
	counts, err := a.store.PageViewCounts(ctx)
	if err != nil {
		return nil, err
	}
	return rankPages(counts, a.topN), nil
}

// SessionsOn counts distinct sessions with activity on the given day (UTC).
func (a *Aggregator) SessionsOn(ctx context.Context, day time.Time) (int64, error) {
	start := day.UTC().Truncate(24 * time.Hour)
	return a.store.DistinctSessions(ctx, start, start.Add(24*time.Hour))
}

// rankPages sorts counts descending by views. Ties break on URL so the
// ordering is deterministic.
func rankPages(counts map[string]int64, topN int) []models.PageCount {
	ranked := make([]models.PageCount, 0, len(counts))
	for pageURL, views := range counts {
		ranked = append(ranked, models.PageCount{PageURL: pageURL, Views: views})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Views != ranked[j].Views {
			return ranked[i].Views > ranked[j].Views
		}
		return ranked[i].PageURL < ranked[j].PageURL
	})

	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	return ranked
}

// maxTime is an open upper bound for "all recorded history" queries.
func maxTime() time.Time {
	return time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)
}
