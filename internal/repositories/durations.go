package repositories

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// sqlite caps bound parameters per statement; stay well below it.
const lookupChunk = 500

// DurationRepository caches video durations so repeat lookups skip the upstream API.
type DurationRepository struct {
	db *sql.DB
}

// NewDurationRepository creates a new [DurationRepository] with the given database connection
func NewDurationRepository(db *sql.DB) *DurationRepository {
	return &DurationRepository{db: db}
}

// Durations returns the cached duration of each id that has one, and the ids cached as
// unavailable.
func (r *DurationRepository) Durations(ids []string) (map[string]time.Duration, []string, error) {
	found := make(map[string]time.Duration, len(ids))
	var unavailable []string
	for start := 0; start < len(ids); start += lookupChunk {
		end := min(start+lookupChunk, len(ids))
		chunk := ids[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}
		query := `SELECT video_id, seconds FROM video_durations WHERE video_id IN (?` +
			strings.Repeat(", ?", len(chunk)-1) + `)`

		gone, err := r.scan(found, query, args...)
		if err != nil {
			return nil, nil, err
		}
		unavailable = append(unavailable, gone...)
	}
	return found, unavailable, nil
}

func (r *DurationRepository) scan(found map[string]time.Duration, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query durations: %w", err)
	}
	defer rows.Close()

	var unavailable []string
	for rows.Next() {
		var (
			id      string
			seconds sql.NullInt64
		)
		if err := rows.Scan(&id, &seconds); err != nil {
			return nil, fmt.Errorf("failed to scan duration: %w", err)
		}
		if !seconds.Valid {
			unavailable = append(unavailable, id)
			continue
		}
		found[id] = time.Duration(seconds.Int64) * time.Second
	}
	return unavailable, rows.Err()
}

// SaveDurations upserts every duration and records every unavailable id in one transaction.
// An unavailable id never replaces a known duration.
func (r *DurationRepository) SaveDurations(durations map[string]time.Duration, unavailable []string) error {
	if len(durations) == 0 && len(unavailable) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO video_durations (video_id, seconds, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET seconds = excluded.seconds, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare duration insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for id, d := range durations {
		if d < 0 {
			return fmt.Errorf("duration for %s cannot be negative: %v", id, d)
		}
		if _, err := stmt.Exec(id, int64(d/time.Second), now); err != nil {
			return fmt.Errorf("failed to store duration for %s: %w", id, err)
		}
	}

	for _, id := range unavailable {
		if _, err := tx.Exec(
			`INSERT INTO video_durations (video_id, seconds, fetched_at) VALUES (?, NULL, ?)
			ON CONFLICT(video_id) DO NOTHING`, id, now,
		); err != nil {
			return fmt.Errorf("failed to mark %s unavailable: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit durations: %w", err)
	}
	return nil
}

// Count returns how many durations are cached and how many ids are cached as unavailable.
func (r *DurationRepository) Count() (known, unavailable int, err error) {
	err = r.db.QueryRow(`SELECT COUNT(seconds), COUNT(*) - COUNT(seconds) FROM video_durations`).Scan(&known, &unavailable)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count durations: %w", err)
	}
	return known, unavailable, nil
}

// Clear deletes every cached duration.
func (r *DurationRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM video_durations`); err != nil {
		return fmt.Errorf("failed to clear durations: %w", err)
	}
	return nil
}
