package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEventTypeValid(t *testing.T) {
	for _, eventType := range []EventType{
		EventPageView, EventClick, EventScroll,
		EventOutboundLink, EventFormSubmit,
		EventSessionStart, EventSessionEnd,
	} {
		require.True(t, eventType.Valid(), string(eventType))
	}

	require.False(t, EventType("").Valid())
	require.False(t, EventType("telemetry_ping").Valid())
}

func TestEventRecord_SessionDuration(t *testing.T) {
	t.Run("float duration", func(t *testing.T) {
		record := &EventRecord{
			EventType: EventSessionEnd,
			EventData: map[string]any{"sessionDuration": 42.5},
		}
		duration, ok := record.SessionDuration()
		require.True(t, ok)
		require.Equal(t, 42.5, duration)
	})

	t.Run("integer duration", func(t *testing.T) {
		record := &EventRecord{
			EventType: EventSessionEnd,
			EventData: map[string]any{"sessionDuration": 42},
		}
		duration, ok := record.SessionDuration()
		require.True(t, ok)
		require.Equal(t, 42.0, duration)
	})

	t.Run("only session_end carries a duration", func(t *testing.T) {
		record := &EventRecord{
			EventType: EventPageView,
			EventData: map[string]any{"sessionDuration": 42.5},
		}
		_, ok := record.SessionDuration()
		require.False(t, ok)
	})

	t.Run("missing or non-numeric values", func(t *testing.T) {
		record := &EventRecord{EventType: EventSessionEnd}
		_, ok := record.SessionDuration()
		require.False(t, ok)

		record.EventData = map[string]any{"sessionDuration": "42"}
		_, ok = record.SessionDuration()
		require.False(t, ok)
	})
}
