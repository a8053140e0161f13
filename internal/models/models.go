// package models defines the data model for the playlist session engine
package models

import (
	"fmt"
	"strings"
	"time"
)

// Session holds the implicit-grant credential for the signed-in user.
//
// Exactly one Session exists per process and it is owned by the credential store.
type Session struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	Nonce       string    `json:"-"`
}

// Valid reports whether the session carries a credential that has not expired at now.
func (s *Session) Valid(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || now.Before(s.ExpiresAt)
}

// TTL returns the time remaining before the credential expires.
func (s *Session) TTL(now time.Time) time.Duration {
	if s == nil || s.ExpiresAt.IsZero() {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// Collection represents a playlist. Collections are replaced wholesale on re-fetch.
type Collection struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	ItemCount    int64  `json:"item_count"`
}

// Item represents one video entry in a collection.
type Item struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	AddedAt      time.Time `json:"added_at"`
	PublishedAt  time.Time `json:"published_at"`
	CollectionID string    `json:"collection_id"`
}

// URL returns the watch page for the item.
func (i Item) URL() string {
	return "https://www.youtube.com/watch?v=" + i.ID
}

// Theme names the visual palette.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case ThemeLight:
		return ThemeLight, nil
	case ThemeDark:
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("unknown theme %q", s)
	}
}

// Preferences are the durable viewing settings.
type Preferences struct {
	Theme       Theme `json:"theme"`
	Autoplay    bool  `json:"autoplay"`
	LoopWindow  bool  `json:"loop_window"`
	Volume      int   `json:"volume"`
	LowPower    bool  `json:"low_power"`
	ShowSidebar bool  `json:"show_sidebar"`
}

// DefaultPreferences returns the settings used before anything has been persisted.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:       ThemeLight,
		Autoplay:    true,
		LoopWindow:  false,
		Volume:      50,
		LowPower:    false,
		ShowSidebar: true,
	}
}

// ClampVolume bounds v to 0..100.
func ClampVolume(v int) int {
	return max(0, min(100, v))
}

// SortKey selects the display list ordering. The zero value keeps source order.
type SortKey string

const (
	SortNone      SortKey = ""
	SortTitle     SortKey = "title"
	SortViews     SortKey = "views"
	SortAdded     SortKey = "added"
	SortPublished SortKey = "published"
)

// ParseSortKey validates a sort key name. "none" and "" both map to [SortNone].
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortTitle, SortViews, SortAdded, SortPublished:
		return k, nil
	case "none":
		return SortNone, nil
	default:
		return SortNone, fmt.Errorf("unknown sort key %q", s)
	}
}

func (k SortKey) String() string {
	if k == SortNone {
		return "none"
	}
	return string(k)
}

// SortDirection is ascending or descending. The zero value is descending.
type SortDirection int

const (
	Descending SortDirection = iota
	Ascending
)

// Flip returns the opposite direction.
func (d SortDirection) Flip() SortDirection {
	if d == Ascending {
		return Descending
	}
	return Ascending
}

func (d SortDirection) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// ParseSortDirection accepts asc/ascending and desc/descending.
func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Ascending, nil
	case "", "desc", "descending":
		return Descending, nil
	default:
		return Descending, fmt.Errorf("unknown sort direction %q", s)
	}
}

// DisplayMode selects how the ordered sequence is windowed.
type DisplayMode int

const (
	FullList DisplayMode = iota
	LoopWindow
)

func (m DisplayMode) String() string {
	if m == LoopWindow {
		return "loop-window"
	}
	return "full-list"
}

// PlayerState mirrors the state codes the embedded YouTube player reports.
type PlayerState int

const (
	StateUnstarted PlayerState = -1
	StateEnded     PlayerState = 0
	StatePlaying   PlayerState = 1
	StatePaused    PlayerState = 2
	StateBuffering PlayerState = 3
	StateCued      PlayerState = 5
)

// Active reports whether the state counts as playback activity.
func (s PlayerState) Active() bool {
	return s == StatePlaying || s == StateBuffering
}

func (s PlayerState) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateEnded:
		return "ended"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateBuffering:
		return "buffering"
	case StateCued:
		return "cued"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sample is one progress observation from the player.
type Sample struct {
	Position time.Duration
	Duration time.Duration
	State    PlayerState
}

// Cursor tracks the item being played and whether it has earned its watch credit.
type Cursor struct {
	ItemID     string        `json:"item_id"`
	Counted    bool          `json:"counted"`
	LastTime   time.Duration `json:"last_time"`
	LastTimeAt time.Time     `json:"last_time_at"`
}

// WatchEntry is one row of local watch history.
type WatchEntry struct {
	VideoID      string    `json:"video_id"`
	CollectionID string    `json:"collection_id"`
	WatchedAt    time.Time `json:"watched_at"`
}
