package tracker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/statmill/statmill/internal/models"
)

func TestHTTPTransport(t *testing.T) {
	t.Run("send posts the event and close waits for it", func(t *testing.T) {
		var mu sync.Mutex
		var received []models.Event

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var event models.Event
			require.NoError(t, json.NewDecoder(r.Body).Decode(&event))

			mu.Lock()
			received = append(received, event)
			mu.Unlock()

			w.WriteHeader(http.StatusAccepted)
		}))
		defer ts.Close()

		transport := NewHTTPTransport(ts.URL)
		transport.Send(&models.Event{
			EventType: models.EventPageView,
			PageURL:   "/home",
			SessionID: "sess-1",
		})
		require.NoError(t, transport.Close())

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, received, 1)
		require.Equal(t, models.EventPageView, received[0].EventType)
		require.Equal(t, "sess-1", received[0].SessionID)
	})

	t.Run("send after close is dropped", func(t *testing.T) {
		var mu sync.Mutex
		var count int

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			count++
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		}))
		defer ts.Close()

		transport := NewHTTPTransport(ts.URL)
		require.NoError(t, transport.Close())

		transport.Send(&models.Event{
			EventType: models.EventPageView,
			PageURL:   "/home",
			SessionID: "sess-1",
		})

		mu.Lock()
		defer mu.Unlock()
		require.Equal(t, 0, count)
	})

	t.Run("unreachable collector never surfaces an error", func(t *testing.T) {
		transport := NewHTTPTransport("http://127.0.0.1:1/track")

		transport.Send(&models.Event{
			EventType: models.EventPageView,
			PageURL:   "/home",
			SessionID: "sess-1",
		})
		require.NoError(t, transport.Close())
	})
}
