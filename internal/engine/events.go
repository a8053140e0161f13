package engine

import (
	"fmt"

	"github.com/desertthunder/ytloop/internal/models"
)

// Event is a state change reported to the presentation layer.
type Event struct {
	Kind    Kind
	Message string       // Human-readable message for display
	Item    *models.Item // Item the event is about, when there is one
	Count   int          // New view count for credit events, list length otherwise
	Reason  string       // Logout reason for logged-out events
	Err     error        // Cause of a notice, if any
}

// Event kind enumeration
type Kind int

const (
	LoggedIn Kind = iota
	CollectionsLoaded
	ItemsLoaded
	DisplayChanged
	NowPlaying
	Credited
	Notice
	LoggedOut
)

func (k Kind) String() string {
	switch k {
	case LoggedIn:
		return "logged_in"
	case CollectionsLoaded:
		return "collections_loaded"
	case ItemsLoaded:
		return "items_loaded"
	case DisplayChanged:
		return "display_changed"
	case NowPlaying:
		return "now_playing"
	case Credited:
		return "credited"
	case Notice:
		return "notice"
	case LoggedOut:
		return "logged_out"
	default:
		return ""
	}
}

// Logout reasons.
const (
	ReasonUser    = "user"
	ReasonIdle    = "idle"
	ReasonExpired = "expired"
)

func loggedInEvent(s models.Session) Event {
	return Event{
		Kind:    LoggedIn,
		Message: fmt.Sprintf("Signed in until %s", s.ExpiresAt.Format("15:04")),
	}
}

func collectionsEvent(n int) Event {
	return Event{
		Kind:    CollectionsLoaded,
		Count:   n,
		Message: fmt.Sprintf("Loaded %d playlists", n),
	}
}

func itemsEvent(c models.Collection, n int) Event {
	title := c.Title
	if title == "" {
		title = c.ID
	}
	return Event{
		Kind:    ItemsLoaded,
		Count:   n,
		Message: fmt.Sprintf("Loaded %d videos from %s", n, title),
	}
}

func displayEvent(n int) Event {
	return Event{Kind: DisplayChanged, Count: n}
}

func nowPlayingEvent(item models.Item) Event {
	return Event{
		Kind:    NowPlaying,
		Item:    &item,
		Message: fmt.Sprintf("Now playing: %s", item.Title),
	}
}

func creditEvent(item models.Item, count int) Event {
	return Event{
		Kind:    Credited,
		Item:    &item,
		Count:   count,
		Message: fmt.Sprintf("Watched %s (%d)", item.Title, count),
	}
}

func noticeEvent(msg string, err error) Event {
	return Event{Kind: Notice, Message: msg, Err: err}
}

func loggedOutEvent(reason string) Event {
	var msg string
	switch reason {
	case ReasonIdle:
		msg = "Signed out after inactivity"
	case ReasonExpired:
		msg = "Your session has expired. Please sign in again."
	default:
		msg = "Signed out"
	}
	return Event{Kind: LoggedOut, Reason: reason, Message: msg}
}
