// package services defines interface Source for reading a user's playlists
package services

import (
	"context"
	"time"

	"github.com/desertthunder/ytloop/internal/models"
)

// Source reads collections, items and durations for the signed-in user.
type Source interface {
	// Collections returns every playlist owned by the user, fully paginated.
	Collections(ctx context.Context) ([]models.Collection, error)

	// Items returns every entry of the playlist in source order with duplicates removed.
	Items(ctx context.Context, collectionID string) ([]models.Item, error)

	// Durations looks up the duration of each video id.
	// Ids the upstream does not know are absent from the result.
	Durations(ctx context.Context, ids []string) (map[string]time.Duration, error)
}

// TotalDuration sums the durations of ids, ignoring ids without a known duration.
func TotalDuration(durations map[string]time.Duration, ids []string) time.Duration {
	var total time.Duration
	for _, id := range ids {
		total += durations[id]
	}
	return total
}

// Dedupe drops entries with an empty id and every later repeat of an id, keeping source order.
func Dedupe(items []models.Item) []models.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if item.ID == "" {
			continue
		}
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func chunk[T any](in []T, size int) [][]T {
	if size <= 0 {
		size = len(in)
	}
	var out [][]T
	for start := 0; start < len(in); start += size {
		end := min(start+size, len(in))
		out = append(out, in[start:end])
	}
	return out
}
