package tracker

import (
	"math"

	"github.com/statmill/statmill/internal/models"
)

// scrollMilestones is the fixed ordered set of depth thresholds, evaluated
// lowest-first.
var scrollMilestones = [...]int{25, 50, 75, 90, 100}

// ObserveScroll is the scroll callback: the host reports the current scroll
// offset and geometry, and the tracker emits at most one milestone event per
// observation. Each threshold fires exactly once per session, in ascending
// order, and is never re-fired when the user scrolls back up and down again.
// Milestone state resets only on session rotation.
//
// No I/O happens inline; delivery is handed off asynchronously, so calling
// this from a scroll handler does not degrade scrolling.
func (t *Tracker) ObserveScroll(scrollTop, viewportHeight, documentHeight float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.session
	if s == nil || s.ended || t.stopped {
		return
	}

	// Scrollable distance. When the page is shorter than the viewport the
	// depth is undefined and no milestone fires.
	scrollable := documentHeight - viewportHeight
	if scrollable <= 0 {
		return
	}

	depth := math.Round(scrollTop / scrollable * 100)

	// One milestone per observation: the break keeps a single deep scroll
	// from flooding events, while repeated observations still eventually
	// fire every crossed threshold.
	for _, milestone := range scrollMilestones {
		if depth >= float64(milestone) && !s.fired[milestone] {
			s.fired[milestone] = true

			value := float64(milestone)
			t.emitLocked(models.EventScroll,
				map[string]any{"scrollDepth": milestone},
				&models.Metrics{ScrollDepth: &value},
			)
			break
		}
	}
}
