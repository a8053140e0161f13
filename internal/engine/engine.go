package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytloop/internal/activity"
	"github.com/desertthunder/ytloop/internal/auth"
	"github.com/desertthunder/ytloop/internal/compose"
	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/playback"
	"github.com/desertthunder/ytloop/internal/player"
	"github.com/desertthunder/ytloop/internal/services"
	"github.com/desertthunder/ytloop/internal/shared"
	"github.com/desertthunder/ytloop/internal/store"
)

const (
	defaultEventBuffer = 64
	pollTimeout        = 5 * time.Second
	logoutTimeout      = 5 * time.Second
)

// WatchRecorder appends finished play-throughs to the watch history.
type WatchRecorder interface {
	RecordWatch(entry models.WatchEntry) error
}

// Options holds the collaborators of an [Engine]. Credentials, Source and Preferences are required.
type Options struct {
	Config      *shared.Config
	Credentials *auth.Store
	Source      services.Source
	Preferences *store.PreferenceStore
	History     WatchRecorder
	Player      player.Player
	Clock       shared.Clock
	Logger      *log.Logger
	EventBuffer int
}

// Engine owns the session state and serializes every mutation behind one mutex.
//
// Network and player calls never run with the mutex held.
type Engine struct {
	mu      sync.Mutex
	cfg     *shared.Config
	creds   *auth.Store
	source  services.Source
	prefs   *store.PreferenceStore
	history WatchRecorder
	player  player.Player
	clock   shared.Clock
	logger  *log.Logger

	items   *store.ItemStore
	tracker *playback.Tracker
	poller  *playback.Poller
	monitor *activity.Monitor
	events  chan Event

	query compose.Query
	limit int
}

// New creates an [Engine] and installs its idle and expiry hooks.
func New(opts Options) (*Engine, error) {
	if opts.Credentials == nil {
		return nil, fmt.Errorf("%w: credential store not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: collection source not initialized", shared.ErrServiceUnavailable)
	}
	if opts.Preferences == nil {
		return nil, fmt.Errorf("%w: preference store not initialized", shared.ErrServiceUnavailable)
	}

	cfg := opts.Config
	if cfg == nil {
		cfg = shared.DefaultConfig()
	}
	clock := opts.Clock
	if clock == nil {
		clock = shared.RealClock{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}

	e := &Engine{
		cfg:     cfg,
		creds:   opts.Credentials,
		source:  opts.Source,
		prefs:   opts.Preferences,
		history: opts.History,
		player:  opts.Player,
		clock:   clock,
		logger:  shared.WithLogger(logger, "component", "engine"),
		items:   store.NewItemStore(),
		tracker: playback.NewTracker(cfg.Playback.WatchThreshold),
		events:  make(chan Event, buffer),
		limit:   cfg.Playback.PageStep,
	}
	e.poller = playback.NewPoller(clock, e.tick)
	e.monitor = activity.New(activity.Options{
		Clock:    clock,
		Limit:    cfg.Session.IdleLimit.Duration,
		Interval: cfg.Session.IdleInterval.Duration,
		Grace:    cfg.Session.PlaybackGrace.Duration,
		OnIdle:   func() { e.logoutAsync(ReasonIdle) },
		Logger:   logger,
	})
	e.creds.OnExpiring(func() { e.logoutAsync(ReasonExpired) })
	return e, nil
}

// Events returns the event stream. Events are dropped when the buffer is full.
func (e *Engine) Events() <-chan Event {
	return e.events
}

// emit sends an event through the channel without blocking.
func (e *Engine) emit(ev Event) {
	select {
	case e.events <- ev:
	default:
		e.logger.Debug("event dropped", "kind", ev.Kind)
	}
}

// BeginLogin returns the authorization URL for a fresh login attempt.
func (e *Engine) BeginLogin() (string, error) {
	return e.creds.BeginLogin()
}

// CompleteLogin creates the session from the callback fragment, starts idle supervision and
// fetches the collection list.
//
// A rejected callback creates no session and triggers no fetch. When only the playlist fetch
// fails the session stands and the fetch error is returned; [Engine.Authenticated] tells the two
// cases apart.
func (e *Engine) CompleteLogin(ctx context.Context, fragment string) error {
	session, err := e.creds.CompleteLogin(fragment)
	if err != nil {
		if errors.Is(err, shared.ErrCSRFMismatch) {
			e.emit(noticeEvent("Login rejected: the callback did not match this login attempt.", err))
		} else {
			e.emit(noticeEvent("Login failed.", err))
		}
		return err
	}

	e.monitor.Start()
	e.emit(loggedInEvent(session))

	_, err = e.RefreshCollections(ctx)
	return err
}

// Authenticated reports whether a session exists.
func (e *Engine) Authenticated() bool {
	return e.creds.Authenticated()
}

// Logout ends the session. Durable view counts and favorites are kept.
//
// Logout reports whether a session existed; the logged-out event is emitted only then.
func (e *Engine) Logout(ctx context.Context, reason string) bool {
	e.mu.Lock()
	e.items.Clear()
	e.tracker.Reset("", e.clock.Now())
	e.query = compose.Query{}
	e.limit = e.cfg.Playback.PageStep
	e.mu.Unlock()

	e.poller.Stop()
	e.monitor.Stop()
	if e.player != nil {
		if err := e.player.Stop(ctx); err != nil {
			e.logger.Warn("failed to stop player", "error", err)
		}
	}

	had := e.creds.Clear(ctx, reason)

	e.mu.Lock()
	err := e.prefs.ResetVisual()
	e.mu.Unlock()
	if err != nil {
		e.logger.Error("failed to reset visual preferences", "error", err)
	}

	if had {
		e.emit(loggedOutEvent(reason))
	}
	return had
}

func (e *Engine) logoutAsync(reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), logoutTimeout)
	defer cancel()
	e.Logout(ctx, reason)
}

// Close stops timers and releases the player. The session is left alone.
func (e *Engine) Close() error {
	e.poller.Stop()
	e.monitor.Stop()
	if e.player != nil {
		return e.player.Close()
	}
	return nil
}

// fetchFailed turns a remote error into a notice. An unauthorized response ends the session.
func (e *Engine) fetchFailed(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrTokenExpired):
		e.logger.Warn("credential rejected", "op", op, "error", err)
		e.Logout(ctx, ReasonExpired)
	case errors.Is(err, shared.ErrForbidden):
		e.emit(noticeEvent("Access denied. You may not have permission to view this playlist.", err))
	case errors.Is(err, shared.ErrPlaylistNotFound):
		e.emit(noticeEvent("That playlist no longer exists.", err))
	case errors.Is(err, shared.ErrMalformedPagination):
		e.emit(noticeEvent("The server returned more pages than expected. Nothing was loaded.", err))
	case errors.Is(err, context.Canceled), errors.Is(err, shared.ErrNotAuthenticated):
	default:
		e.emit(noticeEvent(fmt.Sprintf("Failed to %s.", op), err))
	}
	return err
}

func (e *Engine) requireSession() error {
	if !e.creds.Authenticated() {
		return shared.ErrNotAuthenticated
	}
	return nil
}

// RefreshCollections replaces the collection list with a fresh fetch.
//
// A list that arrives after the session ended is discarded with [shared.ErrStaleFetch].
func (e *Engine) RefreshCollections(ctx context.Context) ([]models.Collection, error) {
	if err := e.requireSession(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	epoch := e.items.Epoch()
	e.mu.Unlock()

	collections, err := e.source.Collections(ctx)
	if err != nil {
		return nil, e.fetchFailed(ctx, "load playlists", err)
	}

	e.mu.Lock()
	if e.creds.Authenticated() {
		err = e.items.CommitCollections(epoch, collections)
	} else {
		err = fmt.Errorf("%w: session ended during the fetch", shared.ErrStaleFetch)
	}
	e.mu.Unlock()
	if err != nil {
		e.logger.Debug("discarded collection list", "error", err)
		return nil, err
	}

	e.emit(collectionsEvent(len(collections)))
	return collections, nil
}

// Collections returns the cached collection list.
func (e *Engine) Collections() []models.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items.Collections()
}

// SelectCollection makes id the current collection and loads its items.
//
// If another collection is selected while the fetch is in flight the result is discarded
// and [shared.ErrStaleFetch] is returned.
func (e *Engine) SelectCollection(ctx context.Context, id string) ([]models.Item, error) {
	if err := e.requireSession(); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: collection id", shared.ErrMissingArgument)
	}

	e.mu.Lock()
	gen := e.items.BeginSelect(id)
	e.tracker.Reset("", e.clock.Now())
	e.limit = e.cfg.Playback.PageStep
	e.mu.Unlock()

	e.stopPolling()
	e.emit(displayEvent(0))

	items, err := e.source.Items(ctx, id)
	if err != nil {
		return nil, e.fetchFailed(ctx, "load playlist items", err)
	}

	e.mu.Lock()
	if err := e.items.Commit(gen, items); err != nil {
		e.mu.Unlock()
		e.logger.Debug("discarded items", "collection", id, "error", err)
		return nil, err
	}
	collection, _ := e.items.Collection(id)
	if collection.ID == "" {
		collection.ID = id
	}
	n := len(e.displayLocked())
	e.mu.Unlock()

	e.emit(itemsEvent(collection, len(items)))
	e.emit(displayEvent(n))
	return items, nil
}

// CollectionDuration sums the durations of every item in the selected collection.
func (e *Engine) CollectionDuration(ctx context.Context) (time.Duration, error) {
	durations, ids, err := e.itemDurations(ctx)
	if err != nil {
		return 0, err
	}
	return services.TotalDuration(durations, ids), nil
}

// ItemDurations looks up the duration of every item in the selected collection.
// Items whose duration is unknown are missing from the map.
func (e *Engine) ItemDurations(ctx context.Context) (map[string]time.Duration, error) {
	durations, _, err := e.itemDurations(ctx)
	return durations, err
}

func (e *Engine) itemDurations(ctx context.Context) (map[string]time.Duration, []string, error) {
	if err := e.requireSession(); err != nil {
		return nil, nil, err
	}

	e.mu.Lock()
	ids := make([]string, 0, e.items.Len())
	for _, item := range e.items.Items() {
		ids = append(ids, item.ID)
	}
	e.mu.Unlock()

	if len(ids) == 0 {
		return map[string]time.Duration{}, ids, nil
	}

	durations, err := e.source.Durations(ctx, ids)
	if err != nil {
		return nil, nil, e.fetchFailed(ctx, "load durations", err)
	}
	return durations, ids, nil
}

// UserActivity records user input.
func (e *Engine) UserActivity() {
	e.monitor.Touch()
}

// VisibilityRestored records the user returning to the app.
func (e *Engine) VisibilityRestored() {
	e.monitor.VisibilityRestored()
}

// View is a consistent snapshot of everything the presentation layer renders.
type View struct {
	Authenticated bool
	Collections   []models.Collection
	Selected      string
	Loading       bool
	Display       []models.Item
	Matches       int
	HasMore       bool
	Query         compose.Query
	Mode          models.DisplayMode
	Current       models.Item
	Cursor        models.Cursor
	Preferences   models.Preferences
	ViewCounts    map[string]int
	Favorites     map[string]bool
}

// View returns the current state with the display list recomputed from it.
func (e *Engine) View() View {
	authenticated := e.creds.Authenticated()

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshotLocked()
	ordered := compose.Order(snap)
	mode := e.modeLocked()
	cursor := e.tracker.Cursor()
	current, _ := e.items.Item(cursor.ItemID)

	return View{
		Authenticated: authenticated,
		Collections:   e.items.Collections(),
		Selected:      e.items.Selected(),
		Loading:       e.items.Selected() != "" && !e.items.Loaded(),
		Display:       compose.Compose(snap, e.windowLocked()),
		Matches:       len(ordered),
		HasMore:       mode == models.FullList && len(ordered) > e.limit,
		Query:         e.query,
		Mode:          mode,
		Current:       current,
		Cursor:        cursor,
		Preferences:   e.prefs.Preferences(),
		ViewCounts:    snap.ViewCounts,
		Favorites:     snap.Favorites,
	}
}

// Ordered returns every match of the query in display order, ignoring the window and page limit.
func (e *Engine) Ordered() []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orderLocked()
}

// Display returns the display list.
func (e *Engine) Display() []models.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayLocked()
}

func (e *Engine) snapshotLocked() compose.Snapshot {
	return compose.Snapshot{
		Items:      e.items.Items(),
		ViewCounts: e.prefs.ViewCounts(),
		Favorites:  e.prefs.Favorites(),
		Query:      e.query,
	}
}

func (e *Engine) modeLocked() models.DisplayMode {
	if e.prefs.Preferences().LoopWindow {
		return models.LoopWindow
	}
	return models.FullList
}

func (e *Engine) windowLocked() compose.Window {
	return compose.Window{
		Mode:      e.modeLocked(),
		CurrentID: e.tracker.Cursor().ItemID,
		Limit:     e.limit,
		Size:      e.cfg.Playback.WindowSize,
	}
}

func (e *Engine) displayLocked() []models.Item {
	return compose.Compose(e.snapshotLocked(), e.windowLocked())
}

func (e *Engine) orderLocked() []models.Item {
	return compose.Order(e.snapshotLocked())
}

// mutate applies fn under the mutex and emits the recomputed display length.
// A reset limit returns the full list to its first page.
func (e *Engine) mutate(resetLimit bool, fn func() error) error {
	e.mu.Lock()
	if err := fn(); err != nil {
		e.mu.Unlock()
		return err
	}
	if resetLimit {
		e.limit = e.cfg.Playback.PageStep
	}
	n := len(e.displayLocked())
	e.mu.Unlock()

	e.emit(displayEvent(n))
	return nil
}

// SetSearch filters the display list by title.
func (e *Engine) SetSearch(text string) {
	_ = e.mutate(true, func() error {
		e.query.Search = text
		return nil
	})
}

// SetFavoritesOnly restricts the display list to favorites.
func (e *Engine) SetFavoritesOnly(on bool) {
	_ = e.mutate(true, func() error {
		e.query.FavoritesOnly = on
		return nil
	})
}

// SortBy selects the sort key. Choosing the current key again flips the direction.
func (e *Engine) SortBy(key models.SortKey) {
	_ = e.mutate(true, func() error {
		if key != models.SortNone && key == e.query.SortKey {
			e.query.SortDir = e.query.SortDir.Flip()
		}
		e.query.SortKey = key
		return nil
	})
}

// SetSortDirection sets the sort direction without changing the key.
func (e *Engine) SetSortDirection(dir models.SortDirection) {
	_ = e.mutate(true, func() error {
		e.query.SortDir = dir
		return nil
	})
}

// SetLoopWindow switches between the loop window and the full list.
func (e *Engine) SetLoopWindow(on bool) error {
	return e.mutate(true, func() error {
		return e.prefs.SetLoopWindow(on)
	})
}

// LoadMore grows the full list by one page.
func (e *Engine) LoadMore() {
	_ = e.mutate(false, func() error {
		e.limit += e.cfg.Playback.PageStep
		return nil
	})
}

// ToggleFavorite flips the favorite flag of id and returns the new value.
func (e *Engine) ToggleFavorite(id string) (bool, error) {
	var favorite bool
	err := e.mutate(false, func() error {
		var err error
		favorite, err = e.prefs.ToggleFavorite(id)
		return err
	})
	return favorite, err
}

// ResetViews clears every personal view count.
func (e *Engine) ResetViews() error {
	return e.mutate(false, e.prefs.ResetViews)
}

// ToggleTheme switches between the light and dark theme.
func (e *Engine) ToggleTheme() (models.Theme, error) {
	var theme models.Theme
	err := e.mutate(false, func() error {
		theme = e.prefs.Preferences().Theme.Toggle()
		return e.prefs.SetTheme(theme)
	})
	return theme, err
}

// ToggleSidebar shows or hides the collection sidebar.
func (e *Engine) ToggleSidebar() (bool, error) {
	var show bool
	err := e.mutate(false, func() error {
		show = !e.prefs.Preferences().ShowSidebar
		return e.prefs.SetShowSidebar(show)
	})
	return show, err
}

// SetAutoplay controls advancing to the next item when one ends.
func (e *Engine) SetAutoplay(on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.SetAutoplay(on)
}

// SetLowPower toggles low-power mode, which halves the polling rate.
func (e *Engine) SetLowPower(on bool) error {
	e.mu.Lock()
	err := e.prefs.SetLowPower(on)
	interval := e.pollIntervalLocked()
	e.mu.Unlock()
	if err != nil {
		return err
	}

	if e.poller.Running() {
		e.poller.Start(interval)
	}
	return nil
}

// SetVolume stores the volume and applies it to the player.
func (e *Engine) SetVolume(ctx context.Context, volume int) (int, error) {
	e.mu.Lock()
	err := e.prefs.SetVolume(volume)
	v := e.prefs.Preferences().Volume
	e.mu.Unlock()
	if err != nil {
		return v, err
	}

	if e.player != nil && e.poller.Running() {
		if err := e.player.SetVolume(ctx, v); err != nil {
			e.logger.Warn("failed to set player volume", "error", err)
		}
	}
	return v, nil
}

// Preferences returns the current preferences.
func (e *Engine) Preferences() models.Preferences {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.Preferences()
}

// ViewCount returns the personal view count of id.
func (e *Engine) ViewCount(id string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.ViewCount(id)
}

// Favorites returns the favorite ids sorted.
func (e *Engine) Favorites() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.prefs.FavoriteIDs()
}
