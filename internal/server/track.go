package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/statmill/statmill/internal/httputil"
	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/store"
	"github.com/statmill/statmill/internal/telemetry"
	"github.com/statmill/statmill/internal/useragent"
)

// maxEventBytes bounds the request body for a single event.
const maxEventBytes = 1 << 20 // 1MiB

// timestampFormats are tried in order when parsing a client timestamp.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
}

// handleTrack accepts one event per request. Required fields are event type,
// page URL, and session id; everything else is normalized with server-side
// fallbacks. A rejected request never affects any other request.
func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	started := time.Now()
	ctx := r.Context()
	metrics := telemetry.GetMetrics()

	body := io.Reader(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(body)
		if err != nil {
			metrics.EventsRejectedTotal.Add(ctx, 1)
			writeError(w, http.StatusBadRequest, "invalid gzip body")
			return
		}
		defer gz.Close()
		body = gz
	}

	var event models.Event
	if err := json.NewDecoder(body).Decode(&event); err != nil {
		metrics.EventsRejectedTotal.Add(ctx, 1)
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if message, ok := validateEvent(&event); !ok {
		metrics.EventsRejectedTotal.Add(ctx, 1)
		writeError(w, http.StatusBadRequest, message)
		return
	}

	record := s.normalize(r, &event)

	if err := s.store.Insert(ctx, record); err != nil {
		if errors.Is(err, store.ErrInvalidEvent) {
			metrics.EventsRejectedTotal.Add(ctx, 1)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		// The client never retries, so this event is lost. Keep the loss
		// visible to operators via logs and the dropped counter.
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("event_type", string(record.EventType)).
			Str("session_id", record.SessionID).
			Msg("Failed to persist event")
		metrics.EventsDroppedTotal.Add(ctx, 1)
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	metrics.EventsAcceptedTotal.Add(ctx, 1)
	metrics.IngestDuration.Record(ctx, float64(time.Since(started).Microseconds())/1000.0)

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"eventId": record.EventID.String(),
	})
}

// validateEvent checks the required wire fields before normalization.
func validateEvent(event *models.Event) (string, bool) {
	switch {
	case event.EventType == "":
		return "eventType is required", false
	case !event.EventType.Valid():
		return "unknown eventType", false
	case event.PageURL == "":
		return "pageUrl is required", false
	case event.SessionID == "":
		return "sessionId is required", false
	}
	return "", true
}

// normalize converts a wire event into a durable record, assigning the
// server-generated event id and canonical UTC timestamp and filling device
// info from the request's User-Agent header when the payload omits it.
func (s *Server) normalize(r *http.Request, event *models.Event) *models.EventRecord {
	record := &models.EventRecord{
		EventID:   uuid.Must(uuid.NewV7()),
		SessionID: event.SessionID,
		EventType: event.EventType,
		PageURL:   event.PageURL,
		Timestamp: canonicalTimestamp(event.Timestamp),
		EventData: event.EventData,
	}
	if record.EventData == nil {
		record.EventData = map[string]any{}
	}

	if event.UserID != "" {
		record.UserID = &event.UserID
	}
	if event.ReferrerURL != "" {
		record.ReferrerURL = &event.ReferrerURL
	}

	device := event.DeviceInfo
	if device == nil {
		device = &models.DeviceInfo{}
	}
	fallback := useragent.Resolve(r.UserAgent())
	record.DeviceType = coalesce(device.Type, fallback.Type)
	record.Browser = coalesce(device.Browser, fallback.Browser)
	record.OS = coalesce(device.OS, fallback.OS)
	if device.Resolution != "" {
		record.Resolution = &device.Resolution
	}

	if event.Metrics != nil {
		record.TimeOnPage = event.Metrics.TimeOnPage
		record.ScrollDepth = event.Metrics.ScrollDepth
	}

	if ip := httputil.ClientIPFromContext(r.Context()); ip != "" {
		record.IPAddress = &ip
	}

	return record
}

// canonicalTimestamp parses the client timestamp, falling back to the
// server receive time when absent or unparseable. Always UTC.
func canonicalTimestamp(value string) time.Time {
	if value != "" {
		for _, format := range timestampFormats {
			if ts, err := time.Parse(format, value); err == nil {
				return ts.UTC()
			}
		}
	}
	return time.Now().UTC()
}

// coalesce returns a pointer to the first non-empty string, or nil.
func coalesce(values ...string) *string {
	for i := range values {
		if values[i] != "" {
			return &values[i]
		}
	}
	return nil
}
