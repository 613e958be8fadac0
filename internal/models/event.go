package models

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of behavior an event records.
type EventType string

const (
	EventPageView     EventType = "page_view"
	EventClick        EventType = "click"
	EventScroll       EventType = "scroll"
	EventOutboundLink EventType = "outbound_link"
	EventFormSubmit   EventType = "form_submit"
	EventSessionStart EventType = "session_start"
	EventSessionEnd   EventType = "session_end"
)

var validEventTypes = map[EventType]bool{
	EventPageView:     true,
	EventClick:        true,
	EventScroll:       true,
	EventOutboundLink: true,
	EventFormSubmit:   true,
	EventSessionStart: true,
	EventSessionEnd:   true,
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	return validEventTypes[t]
}

// DeviceInfo describes the client device as resolved from the user agent,
// plus the screen resolution when the client reports it.
type DeviceInfo struct {
	Type       string `json:"type,omitempty"`
	Browser    string `json:"browser,omitempty"`
	OS         string `json:"os,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// Metrics carries the numeric measurements attached to an event.
// Pointers distinguish "absent" from a genuine zero.
type Metrics struct {
	TimeOnPage  *float64 `json:"timeOnPage,omitempty"`
	ScrollDepth *float64 `json:"scrollDepth,omitempty"`
}

// Event is the wire format accepted by POST /track and produced by the
// tracker. Events are immutable once constructed; they are only serialized
// and transmitted.
//
// Timestamp is an ISO-8601 string rather than a time.Time so a malformed
// value normalizes to the server receive time instead of rejecting the
// whole request.
type Event struct {
	EventType   EventType      `json:"eventType"`
	PageURL     string         `json:"pageUrl"`
	SessionID   string         `json:"sessionId"`
	UserID      string         `json:"userId,omitempty"`
	Timestamp   string         `json:"timestamp,omitempty"`
	ReferrerURL string         `json:"referrerUrl,omitempty"`
	EventData   map[string]any `json:"eventData,omitempty"`
	DeviceInfo  *DeviceInfo    `json:"deviceInfo,omitempty"`
	Metrics     *Metrics       `json:"metrics,omitempty"`
}

// EventRecord is one durable row in the event log. The server assigns
// EventID and the canonical Timestamp at ingestion time.
type EventRecord struct {
	EventID     uuid.UUID
	SessionID   string
	UserID      *string
	EventType   EventType
	PageURL     string
	ReferrerURL *string
	Timestamp   time.Time
	EventData   map[string]any

	DeviceType *string
	Browser    *string
	OS         *string
	Resolution *string

	IPAddress *string
	Country   *string
	City      *string

	TimeOnPage  *float64
	ScrollDepth *float64
}

// SessionDuration extracts the sessionDuration value from a session_end
// event's data, if present. Returns false for any other event type or when
// the value is missing or not numeric.
func (r *EventRecord) SessionDuration() (float64, bool) {
	if r.EventType != EventSessionEnd || r.EventData == nil {
		return 0, false
	}
	switch v := r.EventData["sessionDuration"].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Summary is the zero-default rollup returned by the analytics summary query.
type Summary struct {
	PageViews              map[string]int64 `json:"pageViews"`
	TopPages               []PageCount      `json:"topPages"`
	TotalSessions          int64            `json:"totalSessions"`
	AverageSessionDuration float64          `json:"averageSessionDuration"`
	AveragePageTime        float64          `json:"averagePageTime"`
	AverageScrollDepth     float64          `json:"averageScrollDepth"`
}

// PageCount is one entry in a descending page-view ranking.
type PageCount struct {
	PageURL string `json:"pageUrl"`
	Views   int64  `json:"views"`
}

// MetricAverages reports mean values over all recorded events that carried
// the corresponding metric. Means are zero when no samples exist.
type MetricAverages struct {
	TimeOnPage  float64
	ScrollDepth float64
}
