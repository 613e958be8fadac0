package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/store/memory"
)

func TestRetentionSweeper(t *testing.T) {
	ctx := context.Background()
	st := memory.NewEventStore()

	old := &models.EventRecord{
		EventID:   uuid.New(),
		SessionID: "sess-old",
		EventType: models.EventPageView,
		PageURL:   "/ancient",
		Timestamp: time.Now().UTC().Add(-200 * 24 * time.Hour),
	}
	require.NoError(t, st.Insert(ctx, old))

	recent := &models.EventRecord{
		EventID:   uuid.New(),
		SessionID: "sess-new",
		EventType: models.EventPageView,
		PageURL:   "/home",
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, st.Insert(ctx, recent))

	sweeper := NewRetentionSweeper(ctx, st, 180*24*time.Hour, 10*time.Millisecond)
	defer sweeper.Stop()

	require.Eventually(t, func() bool {
		return st.Len() == 1
	}, time.Second, 5*time.Millisecond)

	counts, err := st.PageViewCounts(ctx)
	require.NoError(t, err)
	require.Contains(t, counts, "/home")
	require.NotContains(t, counts, "/ancient")
}

func TestRetentionSweeper_StopIsClean(t *testing.T) {
	sweeper := NewRetentionSweeper(context.Background(), memory.NewEventStore(), time.Hour, time.Hour)
	sweeper.Stop()
	// Stop returns only after the sweep goroutine exits
}
