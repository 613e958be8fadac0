package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/store/memory"
)

func insertPageViews(t *testing.T, st *memory.EventStore, pageURL string, n int) {
	t.Helper()

	ctx := context.Background()
	for i := 0; i < n; i++ {
		err := st.Insert(ctx, &models.EventRecord{
			EventID:   uuid.New(),
			SessionID: "sess-1",
			EventType: models.EventPageView,
			PageURL:   pageURL,
			Timestamp: time.Now().UTC(),
		})
		require.NoError(t, err)
	}
}

func TestAggregator_Summary(t *testing.T) {
	ctx := context.Background()

	t.Run("zero data yields zero-valued summary", func(t *testing.T) {
		agg := NewAggregator(memory.NewEventStore())

		summary, err := agg.Summary(ctx)
		require.NoError(t, err)
		require.Empty(t, summary.PageViews)
		require.Empty(t, summary.TopPages)
		require.Equal(t, int64(0), summary.TotalSessions)
		require.Equal(t, 0.0, summary.AverageSessionDuration)
		require.Equal(t, 0.0, summary.AveragePageTime)
		require.Equal(t, 0.0, summary.AverageScrollDepth)
	})

	t.Run("summary combines counts and averages", func(t *testing.T) {
		st := memory.NewEventStore()
		insertPageViews(t, st, "/a", 3)
		insertPageViews(t, st, "/b", 1)

		require.NoError(t, st.Insert(ctx, &models.EventRecord{
			EventID:   uuid.New(),
			SessionID: "sess-2",
			EventType: models.EventSessionEnd,
			PageURL:   "/a",
			Timestamp: time.Now().UTC(),
			EventData: map[string]any{"sessionDuration": 30.0},
		}))
		require.NoError(t, st.Insert(ctx, &models.EventRecord{
			EventID:   uuid.New(),
			SessionID: "sess-1",
			EventType: models.EventSessionEnd,
			PageURL:   "/b",
			Timestamp: time.Now().UTC(),
			EventData: map[string]any{"sessionDuration": 10.0},
		}))

		summary, err := NewAggregator(st).Summary(ctx)
		require.NoError(t, err)
		require.Equal(t, map[string]int64{"/a": 3, "/b": 1}, summary.PageViews)
		require.Equal(t, []models.PageCount{
			{PageURL: "/a", Views: 3},
			{PageURL: "/b", Views: 1},
		}, summary.TopPages)
		require.Equal(t, int64(2), summary.TotalSessions)
		require.Equal(t, 20.0, summary.AverageSessionDuration)
	})
}

func TestAggregator_TopPages(t *testing.T) {
	ctx := context.Background()

	t.Run("sorted descending by views", func(t *testing.T) {
		st := memory.NewEventStore()
		insertPageViews(t, st, "/b", 1)
		insertPageViews(t, st, "/a", 3)
		insertPageViews(t, st, "/c", 2)

		ranked, err := NewAggregator(st).TopPages(ctx)
		require.NoError(t, err)
		require.Equal(t, []models.PageCount{
			{PageURL: "/a", Views: 3},
			{PageURL: "/c", Views: 2},
			{PageURL: "/b", Views: 1},
		}, ranked)
	})

	t.Run("ties break on url for deterministic order", func(t *testing.T) {
		st := memory.NewEventStore()
		insertPageViews(t, st, "/z", 2)
		insertPageViews(t, st, "/a", 2)

		ranked, err := NewAggregator(st).TopPages(ctx)
		require.NoError(t, err)
		require.Equal(t, []models.PageCount{
			{PageURL: "/a", Views: 2},
			{PageURL: "/z", Views: 2},
		}, ranked)
	})

	t.Run("cut off at top-n", func(t *testing.T) {
		st := memory.NewEventStore()
		for i := 0; i < DefaultTopPages+5; i++ {
			insertPageViews(t, st, string(rune('a'+i))+"-page", i+1)
		}

		ranked, err := NewAggregator(st).TopPages(ctx)
		require.NoError(t, err)
		require.Len(t, ranked, DefaultTopPages)
		require.Equal(t, int64(DefaultTopPages+5), ranked[0].Views)
	})
}

func TestAggregator_SessionsOn(t *testing.T) {
	ctx := context.Background()
	st := memory.NewEventStore()

	day := time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC)

	insert := func(sessionID string, ts time.Time) {
		require.NoError(t, st.Insert(ctx, &models.EventRecord{
			EventID:   uuid.New(),
			SessionID: sessionID,
			EventType: models.EventPageView,
			PageURL:   "/a",
			Timestamp: ts,
		}))
	}

	insert("sess-1", day.Add(2*time.Hour))
	insert("sess-1", day.Add(3*time.Hour))
	insert("sess-2", day.Add(23*time.Hour))
	insert("sess-3", day.AddDate(0, 0, 1)) // next day, excluded
	insert("sess-4", day.Add(-time.Minute))

	count, err := NewAggregator(st).SessionsOn(ctx, day.Add(12*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}
