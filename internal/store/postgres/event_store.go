package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/store"
)

// EventStore implements store.EventStore using PostgreSQL.
// Every accepted event becomes one row in the events table; aggregation
// queries are pushed down to SQL so the read path never loads the raw log
// into memory.
type EventStore struct {
	pool *pgxpool.Pool
	cfg  *EventStoreConfig
}

// NewEventStore creates a new PostgreSQL-backed event store sharing the
// given connection pool.
func NewEventStore(pool *pgxpool.Pool, cfg *EventStoreConfig) *EventStore {
	if cfg == nil {
		cfg = &EventStoreConfig{}
	}
	cfg.ApplyDefaults()

	return &EventStore{
		pool: pool,
		cfg:  cfg,
	}
}

// queryCtx derives a context bounded by the configured query timeout.
func (s *EventStore) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeoutSeconds <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, time.Duration(s.cfg.QueryTimeoutSeconds)*time.Second)
}

// Insert appends one event record to the log. Inserts are independent;
// no transaction spans multiple events.
func (s *EventStore) Insert(ctx context.Context, record *models.EventRecord) error {
	if err := store.ValidateRecord(record); err != nil {
		return err
	}

	eventData, err := json.Marshal(record.EventData)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal event data: %v", store.ErrInvalidEvent, err)
	}

	query := `
		INSERT INTO events (
			event_id, session_id, user_id, event_type, page_url,
			referrer_url, timestamp, event_data, device_type, browser,
			os, screen_resolution, ip_address, country, city,
			time_on_page, scroll_depth
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13::inet, $14, $15, $16, $17
		)
	`

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	_, err = s.pool.Exec(ctx, query,
		record.EventID,
		record.SessionID,
		record.UserID,
		record.EventType,
		record.PageURL,
		record.ReferrerURL,
		record.Timestamp,
		eventData,
		record.DeviceType,
		record.Browser,
		record.OS,
		record.Resolution,
		record.IPAddress,
		record.Country,
		record.City,
		record.TimeOnPage,
		record.ScrollDepth,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", mapPostgresError(err))
	}

	log.Debug().
		Str("event_id", record.EventID.String()).
		Str("event_type", string(record.EventType)).
		Str("session_id", record.SessionID).
		Msg("Inserted event")

	return nil
}

// PageViewCounts returns the number of page_view events per page URL.
func (s *EventStore) PageViewCounts(ctx context.Context) (map[string]int64, error) {
	query := `
		SELECT page_url, COUNT(*) AS views
		FROM events
		WHERE event_type = 'page_view'
		GROUP BY page_url
	`

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query page view counts: %w", mapPostgresError(err))
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var (
			pageURL string
			views   int64
		)
		if err := rows.Scan(&pageURL, &views); err != nil {
			return nil, fmt.Errorf("failed to scan page view count: %w", err)
		}
		counts[pageURL] = views
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read page view counts: %w", mapPostgresError(err))
	}

	return counts, nil
}

// DistinctSessions counts distinct session ids with events in [from, to).
func (s *EventStore) DistinctSessions(ctx context.Context, from, to time.Time) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT session_id)
		FROM events
		WHERE timestamp >= $1 AND timestamp < $2
	`

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var count int64
	if err := s.pool.QueryRow(ctx, query, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count distinct sessions: %w", mapPostgresError(err))
	}

	return count, nil
}

// SessionDurations returns the duration recorded by each session_end event.
// The duration travels in the event data payload, matching the wire format.
func (s *EventStore) SessionDurations(ctx context.Context) ([]float64, error) {
	query := `
		SELECT (event_data->>'sessionDuration')::double precision
		FROM events
		WHERE event_type = 'session_end'
		  AND event_data ? 'sessionDuration'
	`

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query session durations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	var durations []float64
	for rows.Next() {
		var duration float64
		if err := rows.Scan(&duration); err != nil {
			return nil, fmt.Errorf("failed to scan session duration: %w", err)
		}
		durations = append(durations, duration)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read session durations: %w", mapPostgresError(err))
	}

	return durations, nil
}

// MetricAverages returns mean time-on-page and scroll depth across all
// events carrying those metrics. COALESCE keeps the zero-data case a
// zero-valued result rather than a NULL scan error.
func (s *EventStore) MetricAverages(ctx context.Context) (*models.MetricAverages, error) {
	query := `
		SELECT
			COALESCE(AVG(time_on_page), 0),
			COALESCE(AVG(scroll_depth), 0)
		FROM events
	`

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	averages := &models.MetricAverages{}
	if err := s.pool.QueryRow(ctx, query).Scan(&averages.TimeOnPage, &averages.ScrollDepth); err != nil {
		return nil, fmt.Errorf("failed to query metric averages: %w", mapPostgresError(err))
	}

	return averages, nil
}

// DeleteOlderThan removes records with a timestamp before the cutoff.
func (s *EventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM events WHERE timestamp < $1`

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	result, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired events: %w", mapPostgresError(err))
	}

	count := result.RowsAffected()
	if count > 0 {
		log.Info().
			Int64("count", count).
			Time("cutoff", cutoff).
			Msg("Deleted expired events")
	}

	return count, nil
}

// Ping verifies database connectivity.
func (s *EventStore) Ping(ctx context.Context) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return nil
}
