// Package tracker is the client-side instrumentation library. A Tracker
// owns one active session at a time, constructs typed behavior events, and
// hands them to a delivery transport with fire-and-forget semantics:
// tracking must never break or slow down the host application.
package tracker

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog/log"
	"github.com/statmill/statmill/internal/models"
	"github.com/statmill/statmill/internal/useragent"
)

// DefaultSessionTimeout bounds session length from session start; activity
// does not extend it.
const DefaultSessionTimeout = 30 * time.Minute

// Config configures a Tracker. Endpoint is required unless a custom
// Transport is supplied.
type Config struct {
	// Endpoint is the collector URL events are posted to.
	Endpoint string

	// PageURL is the initial page the tracker instruments.
	PageURL string

	// Referrer is attached to every event, mirroring document.referrer.
	Referrer string

	// UserAgent is classified once into device context at construction.
	UserAgent string

	// Resolution is the screen resolution reported with device info.
	Resolution string

	// SessionTimeout is the wall-clock bound on a session, measured from
	// session start. Defaults to DefaultSessionTimeout.
	SessionTimeout time.Duration

	// Transport overrides the default HTTP transport. Useful for tests.
	Transport Transport
}

// session is the unit of ownership for milestone state and the timeout
// timer. Exactly one session is active per tracker at a time.
type session struct {
	id    string
	start time.Time
	timer *time.Timer
	fired map[int]bool
	ended bool
}

// Tracker tracks user behavior for one page context. All entry points
// serialize on one mutex: callbacks may interleave but each runs to
// completion before the next observes shared state.
type Tracker struct {
	mu sync.Mutex

	transport Transport
	timeout   time.Duration
	referrer  string
	device    models.DeviceInfo

	pageURL      string
	session      *session
	lastPageView time.Time
	started      bool
	stopped      bool
}

// New constructs a Tracker. The device context is resolved once here and
// reused for every event, never recomputed.
func New(cfg Config) (*Tracker, error) {
	transport := cfg.Transport
	if transport == nil {
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("endpoint is required")
		}
		transport = NewHTTPTransport(cfg.Endpoint)
	}

	timeout := cfg.SessionTimeout
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}

	device := useragent.Resolve(cfg.UserAgent)
	device.Resolution = cfg.Resolution

	return &Tracker{
		transport: transport,
		timeout:   timeout,
		referrer:  cfg.Referrer,
		device:    device,
		pageURL:   cfg.PageURL,
	}, nil
}

// Start begins the first session: emits session_start, arms the session
// timeout, and records the initial page view. Calling Start twice is an
// error; the tracker has an explicit single-use lifecycle.
func (t *Tracker) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.started {
		return fmt.Errorf("tracker already started")
	}
	if t.stopped {
		return fmt.Errorf("tracker already stopped")
	}
	t.started = true

	t.startSessionLocked()
	t.trackPageViewLocked(t.pageURL)

	return nil
}

// Stop is the page-teardown path: it ends the current session (idempotent,
// no rotation) and closes the transport, waiting for in-flight sends so
// final events survive the teardown.
func (t *Tracker) Stop() error {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return nil
	}
	t.endSessionLocked("teardown")
	t.stopped = true
	t.mu.Unlock()

	// Closed outside the lock: Close blocks until in-flight sends finish.
	return t.transport.Close()
}

// SessionID returns the current session token, or "" when no session is
// active.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session == nil {
		return ""
	}
	return t.session.id
}

// EndSession ends the current session with the given reason. Safe to call
// multiple times; only the first call emits session_end. Teardown does not
// rotate - a new session only begins on timeout.
func (t *Tracker) EndSession(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.endSessionLocked(reason)
}

// startSessionLocked creates a new session with a fresh unpredictable id,
// clears milestone state, emits session_start, and arms the timeout.
func (t *Tracker) startSessionLocked() {
	s := &session{
		id:    newSessionID(),
		start: time.Now(),
		fired: make(map[int]bool),
	}
	t.session = s
	t.lastPageView = time.Time{}

	t.emitLocked(models.EventSessionStart, nil, nil)

	// Wall-clock timeout from session start; touch activity never extends
	// it, bounding session length instead of stretching it indefinitely.
	s.timer = time.AfterFunc(t.timeout, func() {
		t.onTimeout(s)
	})
}

// onTimeout ends the expired session and rotates to a new one. The expired
// session is passed explicitly so a timer racing a teardown or an earlier
// rotation becomes a no-op.
func (t *Tracker) onTimeout(expired *session) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != expired || expired.ended {
		return
	}

	t.endSessionLocked("timeout")

	// Rotation happens atomically under the same lock acquisition: no
	// event can be attributed to two sessions.
	if !t.stopped {
		t.startSessionLocked()
	}
}

// endSessionLocked emits session_end with the elapsed duration and disarms
// the timeout. Idempotent: a second call for the same session is a no-op,
// which makes the timeout/teardown race safe in either order.
func (t *Tracker) endSessionLocked(reason string) {
	s := t.session
	if s == nil || s.ended {
		return
	}
	s.ended = true

	if s.timer != nil {
		s.timer.Stop()
	}

	duration := time.Since(s.start).Seconds()
	t.emitLocked(models.EventSessionEnd, map[string]any{
		"sessionDuration": duration,
		"reason":          reason,
	}, nil)

	log.Debug().
		Str("session_id", s.id).
		Str("reason", reason).
		Float64("duration", duration).
		Msg("Session ended")
}

// newSessionID returns an opaque session token: 128 bits from crypto/rand,
// base58-encoded for compactness.
func newSessionID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("failed to read random bytes: %v", err))
	}
	return base58.Encode(b[:])
}
