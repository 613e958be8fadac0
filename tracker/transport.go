package tracker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/statmill/statmill/internal/models"
)

// Transport is the one-way delivery channel events are handed to. Send must
// not block the caller; no acknowledgment is awaited and no result is
// returned. Close waits for in-flight sends so transmission can complete
// even while the page context is being torn down.
type Transport interface {
	Send(event *models.Event)
	Close() error
}

// HTTPTransport posts each event independently to the collector endpoint.
// Best-effort: a failed send drops the event - an accepted trade-off for
// zero overhead during page navigation. No batching, queueing, or retries.
type HTTPTransport struct {
	endpoint string
	client   *http.Client

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

// NewHTTPTransport creates a transport posting to the given endpoint.
func NewHTTPTransport(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Send serializes the event and transmits it on a background goroutine.
// Always returns immediately; failures are logged at debug level and the
// event is dropped.
func (t *HTTPTransport) Send(event *models.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Debug().Err(err).Msg("Failed to encode event")
		return
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()

		resp, err := t.client.Post(t.endpoint, "application/json", bytes.NewReader(payload))
		if err != nil {
			log.Debug().Err(err).Msg("Failed to deliver event")
			return
		}
		_ = resp.Body.Close()
	}()
}

// Close stops accepting new sends and waits for in-flight ones to finish.
func (t *HTTPTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	t.wg.Wait()
	return nil
}
