package tracker

import (
	"time"

	"github.com/statmill/statmill/internal/models"
)

// Event is the wire format delivered to the collector. Aliased so Transport
// implementations outside this module can name it.
type Event = models.Event

// Track constructs an event of the given type with caller-supplied data and
// hands it to the transport. Fire-and-forget: delivery failures are never
// surfaced, and nothing is tracked after teardown or outside a session.
func (t *Tracker) Track(eventType models.EventType, data map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.emitLocked(eventType, data, nil)
}

// TrackPageView records a navigation to pageURL. When a previous page view
// exists in this session, the elapsed time since it is attached as the
// timeOnPage metric; the first page view of a session omits it.
func (t *Tracker) TrackPageView(pageURL string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.trackPageViewLocked(pageURL)
}

// TrackClick records a click on an interactive element.
func (t *Tracker) TrackClick(element, id, class, text string) {
	const maxTextLen = 100
	if len(text) > maxTextLen {
		text = text[:maxTextLen]
	}

	t.Track(models.EventClick, map[string]any{
		"element": element,
		"id":      id,
		"class":   class,
		"text":    text,
	})
}

// TrackOutboundLink records a click on a link leaving the current origin.
func (t *Tracker) TrackOutboundLink(url string) {
	t.Track(models.EventOutboundLink, map[string]any{"url": url})
}

// TrackFormSubmit records a form submission.
func (t *Tracker) TrackFormSubmit(formID, action string) {
	t.Track(models.EventFormSubmit, map[string]any{
		"formId":     formID,
		"formAction": action,
	})
}

func (t *Tracker) trackPageViewLocked(pageURL string) {
	if pageURL != "" {
		t.pageURL = pageURL
	}

	var metrics *models.Metrics
	if !t.lastPageView.IsZero() {
		elapsed := time.Since(t.lastPageView).Seconds()
		metrics = &models.Metrics{TimeOnPage: &elapsed}
	}
	t.emitLocked(models.EventPageView, nil, metrics)

	t.lastPageView = time.Now()
}

// emitLocked builds an immutable event from the current session context and
// hands it to the transport. The session id and device context are borrowed
// at construction time; the event never observes later tracker state.
func (t *Tracker) emitLocked(eventType models.EventType, data map[string]any, metrics *models.Metrics) {
	s := t.session
	if s == nil || t.stopped {
		return
	}
	// session_end is the one event an ended session still emits; it is
	// sent from endSessionLocked before ended is observed here.
	if s.ended && eventType != models.EventSessionEnd {
		return
	}

	device := t.device
	event := &models.Event{
		EventType:   eventType,
		PageURL:     t.pageURL,
		SessionID:   s.id,
		Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
		ReferrerURL: t.referrer,
		EventData:   data,
		DeviceInfo:  &device,
		Metrics:     metrics,
	}

	// Non-blocking handoff; the transport owns delivery from here.
	t.transport.Send(event)
}
