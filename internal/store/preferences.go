package store

import (
	"fmt"
	"maps"
	"slices"

	"github.com/desertthunder/ytloop/internal/models"
)

// Durable is the backing store for [PreferenceStore].
type Durable interface {
	ViewCounts() (map[string]int, error)
	SetViewCount(videoID string, count int) error
	ResetViewCounts() error
	Favorites() ([]string, error)
	SetFavorite(videoID string, favorite bool) error
	Preferences() (models.Preferences, error)
	SavePreferences(p models.Preferences) error
}

// PreferenceStore is the write-through cache of durable viewing state.
type PreferenceStore struct {
	durable   Durable
	counts    map[string]int
	favorites map[string]struct{}
	prefs     models.Preferences
}

// LoadPreferenceStore reads every durable value once.
func LoadPreferenceStore(d Durable) (*PreferenceStore, error) {
	counts, err := d.ViewCounts()
	if err != nil {
		return nil, fmt.Errorf("failed to load watch counts: %w", err)
	}

	favs, err := d.Favorites()
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}

	prefs, err := d.Preferences()
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}

	s := &PreferenceStore{
		durable:   d,
		counts:    make(map[string]int, len(counts)),
		favorites: make(map[string]struct{}, len(favs)),
		prefs:     prefs,
	}
	for id, n := range counts {
		if n > 0 {
			s.counts[id] = n
		}
	}
	for _, id := range favs {
		s.favorites[id] = struct{}{}
	}
	return s, nil
}

// ViewCount returns the watch count for id.
func (s *PreferenceStore) ViewCount(id string) int {
	return s.counts[id]
}

// ViewCounts returns a copy of every non-zero watch count.
func (s *PreferenceStore) ViewCounts() map[string]int {
	return maps.Clone(s.counts)
}

// IncrementView adds one to the watch count for id and returns the new count.
func (s *PreferenceStore) IncrementView(id string) (int, error) {
	next := s.counts[id] + 1
	if err := s.durable.SetViewCount(id, next); err != nil {
		return s.counts[id], err
	}
	s.counts[id] = next
	return next, nil
}

// ResetViews clears every watch count.
func (s *PreferenceStore) ResetViews() error {
	if err := s.durable.ResetViewCounts(); err != nil {
		return err
	}
	clear(s.counts)
	return nil
}

// IsFavorite reports whether id is a favorite.
func (s *PreferenceStore) IsFavorite(id string) bool {
	_, ok := s.favorites[id]
	return ok
}

// Favorites returns a copy of the favorite set.
func (s *PreferenceStore) Favorites() map[string]bool {
	out := make(map[string]bool, len(s.favorites))
	for id := range s.favorites {
		out[id] = true
	}
	return out
}

// FavoriteIDs returns the favorite ids sorted.
func (s *PreferenceStore) FavoriteIDs() []string {
	return slices.Sorted(maps.Keys(s.favorites))
}

// SetFavorite adds or removes id from the favorites.
func (s *PreferenceStore) SetFavorite(id string, favorite bool) error {
	if err := s.durable.SetFavorite(id, favorite); err != nil {
		return err
	}
	if favorite {
		s.favorites[id] = struct{}{}
	} else {
		delete(s.favorites, id)
	}
	return nil
}

// ToggleFavorite flips the favorite flag of id and returns the new value.
func (s *PreferenceStore) ToggleFavorite(id string) (bool, error) {
	next := !s.IsFavorite(id)
	if err := s.SetFavorite(id, next); err != nil {
		return !next, err
	}
	return next, nil
}

// Preferences returns the current preferences.
func (s *PreferenceStore) Preferences() models.Preferences {
	return s.prefs
}

// Update applies fn to a copy of the preferences and persists the result.
func (s *PreferenceStore) Update(fn func(p *models.Preferences)) (models.Preferences, error) {
	next := s.prefs
	fn(&next)
	next.Volume = models.ClampVolume(next.Volume)

	if next == s.prefs {
		return s.prefs, nil
	}
	if err := s.durable.SavePreferences(next); err != nil {
		return s.prefs, err
	}
	s.prefs = next
	return next, nil
}

func (s *PreferenceStore) SetTheme(t models.Theme) error {
	_, err := s.Update(func(p *models.Preferences) { p.Theme = t })
	return err
}

func (s *PreferenceStore) SetAutoplay(on bool) error {
	_, err := s.Update(func(p *models.Preferences) { p.Autoplay = on })
	return err
}

func (s *PreferenceStore) SetLoopWindow(on bool) error {
	_, err := s.Update(func(p *models.Preferences) { p.LoopWindow = on })
	return err
}

// SetVolume stores v clamped to 0..100.
func (s *PreferenceStore) SetVolume(v int) error {
	_, err := s.Update(func(p *models.Preferences) { p.Volume = v })
	return err
}

func (s *PreferenceStore) SetLowPower(on bool) error {
	_, err := s.Update(func(p *models.Preferences) { p.LowPower = on })
	return err
}

func (s *PreferenceStore) SetShowSidebar(on bool) error {
	_, err := s.Update(func(p *models.Preferences) { p.ShowSidebar = on })
	return err
}

// ResetVisual restores the theme and low-power flag to their defaults.
func (s *PreferenceStore) ResetVisual() error {
	defaults := models.DefaultPreferences()
	_, err := s.Update(func(p *models.Preferences) {
		p.Theme = defaults.Theme
		p.LowPower = defaults.LowPower
	})
	return err
}
