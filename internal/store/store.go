package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/statmill/statmill/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrInvalidEvent     = errors.New("invalid event")
	ErrStoreUnavailable = errors.New("event store unavailable")
)

// EventStore defines the interface for the append-only event log.
//
// Writes are independent inserts; no transaction ever spans multiple events.
// The read-path methods serve the aggregation engine and must not mutate the
// log. Readers operate over an eventually-consistent view and never block
// writers.
type EventStore interface {
	// Insert appends one event record to the log.
	Insert(ctx context.Context, record *models.EventRecord) error

	// PageViewCounts returns the number of page_view events per page URL.
	PageViewCounts(ctx context.Context) (map[string]int64, error)

	// DistinctSessions counts distinct session ids with events in [from, to).
	DistinctSessions(ctx context.Context, from, to time.Time) (int64, error)

	// SessionDurations returns the recorded duration of every ended session.
	SessionDurations(ctx context.Context) ([]float64, error)

	// MetricAverages returns the mean time-on-page and scroll depth across
	// all events carrying those metrics. Zero-valued when no samples exist.
	MetricAverages(ctx context.Context) (*models.MetricAverages, error)

	// DeleteOlderThan removes records with a timestamp before the cutoff,
	// returning the number deleted. Used by the retention sweeper.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// ValidateRecord checks the invariants every stored event must satisfy.
func ValidateRecord(record *models.EventRecord) error {
	if record.SessionID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidEvent)
	}
	if record.PageURL == "" {
		return fmt.Errorf("%w: page url is required", ErrInvalidEvent)
	}
	if !record.EventType.Valid() {
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, record.EventType)
	}
	if record.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	return nil
}
