package playback

import (
	"time"

	"github.com/desertthunder/ytloop/internal/models"
)

// DefaultThreshold is the watched fraction that earns credit.
const DefaultThreshold = 0.6

// Observation is the outcome of one progress sample.
type Observation struct {
	// Credit is true exactly once per play-through.
	Credit bool

	// Advanced is true when the position moved forward since the previous sample.
	Advanced bool
}

// Tracker follows the progress of the item currently loaded.
type Tracker struct {
	threshold float64
	cursor    models.Cursor
}

// NewTracker creates a tracker. A threshold outside (0, 1] uses [DefaultThreshold].
func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Tracker{threshold: threshold}
}

// Reset starts a new play-through of itemID. An empty id means nothing is loaded.
func (t *Tracker) Reset(itemID string, now time.Time) {
	t.cursor = models.Cursor{ItemID: itemID, LastTimeAt: now}
}

// Observe records a progress sample for the current play-through.
func (t *Tracker) Observe(s models.Sample, now time.Time) Observation {
	var obs Observation
	if t.cursor.ItemID == "" {
		return obs
	}

	if s.Position > t.cursor.LastTime {
		t.cursor.LastTime = s.Position
		t.cursor.LastTimeAt = now
		obs.Advanced = true
	} else if s.Position < t.cursor.LastTime {
		// seek backwards
		t.cursor.LastTime = s.Position
	}

	if s.State == models.StateEnded {
		obs.Credit = t.End()
		return obs
	}

	if !t.cursor.Counted && s.Duration > 0 && float64(s.Position) >= t.threshold*float64(s.Duration) {
		t.cursor.Counted = true
		obs.Credit = true
	}
	return obs
}

// End records the natural end of the current item and reports whether it earned credit.
func (t *Tracker) End() bool {
	if t.cursor.ItemID == "" || t.cursor.Counted {
		return false
	}
	t.cursor.Counted = true
	return true
}

// Cursor returns the current playback cursor.
func (t *Tracker) Cursor() models.Cursor {
	return t.cursor
}

// Loaded reports whether an item is loaded.
func (t *Tracker) Loaded() bool {
	return t.cursor.ItemID != ""
}
