package memory

import (
	"context"
	"sync"
	"time"

	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/store"
)

// EventStore implements store.EventStore using in-memory storage.
// Used for development mode and handler tests - data is lost on restart.
type EventStore struct {
	mu sync.RWMutex

	events []*models.EventRecord
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Insert appends one event record. Each insert is independent; concurrent
// appends only contend on the slice append itself.
func (s *EventStore) Insert(ctx context.Context, record *models.EventRecord) error {
	if err := store.ValidateRecord(record); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Clone to avoid external modifications
	clone := *record
	s.events = append(s.events, &clone)

	return nil
}

// PageViewCounts returns page_view counts grouped by page URL.
func (s *EventStore) PageViewCounts(ctx context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64)
	for _, event := range s.events {
		if event.EventType == models.EventPageView {
			counts[event.PageURL]++
		}
	}

	return counts, nil
}

// DistinctSessions counts distinct session ids with events in [from, to).
func (s *EventStore) DistinctSessions(ctx context.Context, from, to time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, event := range s.events {
		if event.Timestamp.Before(from) || !event.Timestamp.Before(to) {
			continue
		}
		seen[event.SessionID] = true
	}

	return int64(len(seen)), nil
}

// SessionDurations returns the duration carried by each session_end event.
func (s *EventStore) SessionDurations(ctx context.Context) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var durations []float64
	for _, event := range s.events {
		if duration, ok := event.SessionDuration(); ok {
			durations = append(durations, duration)
		}
	}

	return durations, nil
}

// MetricAverages returns mean time-on-page and scroll depth over all events
// carrying those metrics. Missing samples yield zero, never an error.
func (s *EventStore) MetricAverages(ctx context.Context) (*models.MetricAverages, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		pageTimeSum   float64
		pageTimeCount int64
		scrollSum     float64
		scrollCount   int64
	)
	for _, event := range s.events {
		if event.TimeOnPage != nil {
			pageTimeSum += *event.TimeOnPage
			pageTimeCount++
		}
		if event.ScrollDepth != nil {
			scrollSum += *event.ScrollDepth
			scrollCount++
		}
	}

	averages := &models.MetricAverages{}
	if pageTimeCount > 0 {
		averages.TimeOnPage = pageTimeSum / float64(pageTimeCount)
	}
	if scrollCount > 0 {
		averages.ScrollDepth = scrollSum / float64(scrollCount)
	}

	return averages, nil
}

// DeleteOlderThan removes records with a timestamp before the cutoff.
func (s *EventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var deleted int64
	for _, event := range s.events {
		if event.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, event)
	}
	s.events = kept

	return deleted, nil
}

// Ping always succeeds for the in-memory store.
func (s *EventStore) Ping(ctx context.Context) error {
	return nil
}

// Len returns the number of stored events. Test helper.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.events)
}
