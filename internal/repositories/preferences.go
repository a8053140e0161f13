package repositories

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/ytloop/internal/models"
)

// PreferenceRepository persists watch counts, favorites, preferences and watch history.
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new [PreferenceRepository] with the given database connection
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// ViewCounts returns every stored watch count.
func (r *PreferenceRepository) ViewCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT video_id, count FROM watch_counts WHERE count > 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			videoID string
			count   int
		)
		if err := rows.Scan(&videoID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan watch count: %w", err)
		}
		counts[videoID] = count
	}
	return counts, rows.Err()
}

// SetViewCount stores the watch count for a video.
func (r *PreferenceRepository) SetViewCount(videoID string, count int) error {
	if count < 0 {
		return fmt.Errorf("watch count for %s cannot be negative: %d", videoID, count)
	}

	query := `
		INSERT INTO watch_counts (video_id, count, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET count = excluded.count, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, videoID, count, time.Now()); err != nil {
		return fmt.Errorf("failed to store watch count: %w", err)
	}
	return nil
}

// ResetViewCounts deletes every watch count.
func (r *PreferenceRepository) ResetViewCounts() error {
	if _, err := r.db.Exec(`DELETE FROM watch_counts`); err != nil {
		return fmt.Errorf("failed to reset watch counts: %w", err)
	}
	return nil
}

// Favorites returns favorite video ids in the order they were added.
func (r *PreferenceRepository) Favorites() ([]string, error) {
	rows, err := r.db.Query(`SELECT video_id FROM favorites ORDER BY created_at, video_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetFavorite adds or removes a video from the favorites.
func (r *PreferenceRepository) SetFavorite(videoID string, favorite bool) error {
	var err error
	if favorite {
		_, err = r.db.Exec(`INSERT OR IGNORE INTO favorites (video_id, created_at) VALUES (?, ?)`, videoID, time.Now())
	} else {
		_, err = r.db.Exec(`DELETE FROM favorites WHERE video_id = ?`, videoID)
	}
	if err != nil {
		return fmt.Errorf("failed to update favorite %s: %w", videoID, err)
	}
	return nil
}

// Preferences returns the stored preferences, with defaults for keys never written.
func (r *PreferenceRepository) Preferences() (models.Preferences, error) {
	prefs := models.DefaultPreferences()

	rows, err := r.db.Query(`SELECT key, value FROM preferences`)
	if err != nil {
		return prefs, fmt.Errorf("failed to query preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("failed to scan preference: %w", err)
		}
		if err := applyPreference(&prefs, key, value); err != nil {
			return prefs, err
		}
	}
	return prefs, rows.Err()
}

func applyPreference(p *models.Preferences, key, value string) error {
	var err error
	switch key {
	case keyTheme:
		p.Theme, err = models.ParseTheme(value)
	case keyAutoplay:
		p.Autoplay, err = parseBool(key, value)
	case keyLoopWindow:
		p.LoopWindow, err = parseBool(key, value)
	case keyLowPower:
		p.LowPower, err = parseBool(key, value)
	case keyShowSidebar:
		p.ShowSidebar, err = parseBool(key, value)
	case keyVolume:
		var v int
		v, err = strconv.Atoi(value)
		p.Volume = models.ClampVolume(v)
	}
	if err != nil {
		return fmt.Errorf("failed to parse preference %s: %w", key, err)
	}
	return nil
}

// SavePreferences writes every preference key in one transaction.
func (r *PreferenceRepository) SavePreferences(p models.Preferences) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	values := map[string]string{
		keyTheme:       string(p.Theme),
		keyAutoplay:    strconv.FormatBool(p.Autoplay),
		keyLoopWindow:  strconv.FormatBool(p.LoopWindow),
		keyVolume:      strconv.Itoa(models.ClampVolume(p.Volume)),
		keyLowPower:    strconv.FormatBool(p.LowPower),
		keyShowSidebar: strconv.FormatBool(p.ShowSidebar),
	}

	query := `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	now := time.Now()
	for _, key := range PreferenceKeys {
		if _, err := tx.Exec(query, key, values[key], now); err != nil {
			return fmt.Errorf("failed to store preference %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit preferences: %w", err)
	}
	return nil
}

// RecordWatch appends a play-through to the watch history.
func (r *PreferenceRepository) RecordWatch(entry models.WatchEntry) error {
	if entry.WatchedAt.IsZero() {
		entry.WatchedAt = time.Now()
	}

	query := `INSERT INTO watch_history (video_id, collection_id, watched_at) VALUES (?, ?, ?)`
	if _, err := r.db.Exec(query, entry.VideoID, entry.CollectionID, entry.WatchedAt.UTC()); err != nil {
		return fmt.Errorf("failed to record watch: %w", err)
	}
	return nil
}

// History returns the most recent play-throughs, newest first. A limit of zero or less returns all.
func (r *PreferenceRepository) History(limit int) ([]models.WatchEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	query := `
		SELECT video_id, collection_id, watched_at
		FROM watch_history
		ORDER BY watched_at DESC, id DESC
		LIMIT ?
	`
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch history: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchEntry
	for rows.Next() {
		var e models.WatchEntry
		if err := rows.Scan(&e.VideoID, &e.CollectionID, &e.WatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch history: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
