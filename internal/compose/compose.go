// Package compose derives the display list from an explicit snapshot of the session state.
//
// Every function here is pure: the same snapshot always yields the same list, and the input
// slices and maps are never modified.
//
// The pipeline runs in four steps:
//  1. Filter by case-insensitive title search and the favorites-only flag.
//  2. Partition into never-watched items followed by watched items, keeping source order.
//  3. Sort each partition by the chosen key. Unwatched items stay ahead for every key.
//  4. Window the result, either rotated around the current item or as a growing prefix.
//
// [Order] stops after step 3 and is the sequence navigation walks.
package compose

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/desertthunder/ytloop/internal/models"
)

const (
	// WindowSize is how many items the loop window shows.
	WindowSize = 10

	// PageStep is the initial full-list limit and how much each load-more adds.
	PageStep = 10
)

// Query holds the user-controlled filter and sort inputs.
type Query struct {
	Search        string
	FavoritesOnly bool
	SortKey       models.SortKey
	SortDir       models.SortDirection
}

// Snapshot is everything the display list depends on.
type Snapshot struct {
	Items      []models.Item
	ViewCounts map[string]int
	Favorites  map[string]bool
	Query      Query
}

// Window selects which slice of the ordered sequence is shown.
type Window struct {
	Mode      models.DisplayMode
	CurrentID string
	Limit     int
	Size      int
}

// Compose runs the full pipeline.
func Compose(s Snapshot, w Window) []models.Item {
	ordered := Order(s)

	size := w.Size
	if size <= 0 {
		size = WindowSize
	}

	if w.Mode == models.LoopWindow {
		return Rotate(ordered, w.CurrentID, size)
	}

	limit := w.Limit
	if limit <= 0 {
		limit = PageStep
	}
	return Prefix(ordered, limit)
}

// Order filters, partitions and sorts the snapshot items.
func Order(s Snapshot) []models.Item {
	filtered := Filter(s.Items, s.Favorites, s.Query)
	unplayed, played := Partition(filtered, s.ViewCounts)

	if s.Query.SortKey != models.SortNone {
		cmp := comparator(s.Query.SortKey, s.ViewCounts)
		for _, part := range [][]models.Item{unplayed, played} {
			slices.SortStableFunc(part, cmp)
			// Equal keys keep source order ascending, so descending is the exact reverse.
			if s.Query.SortDir == models.Descending {
				slices.Reverse(part)
			}
		}
	}
	return append(unplayed, played...)
}

// Filter keeps items whose title contains the search text, ignoring case, and that are
// favorites when the query asks for favorites only.
func Filter(items []models.Item, favorites map[string]bool, q Query) []models.Item {
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(q.Search))

	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if q.FavoritesOnly && !favorites[item.ID] {
			continue
		}
		if needle != "" && !strings.Contains(fold.String(item.Title), needle) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Partition splits items into never-watched and watched, each in input order.
func Partition(items []models.Item, counts map[string]int) (unplayed, played []models.Item) {
	unplayed = make([]models.Item, 0, len(items))
	for _, item := range items {
		if counts[item.ID] > 0 {
			played = append(played, item)
		} else {
			unplayed = append(unplayed, item)
		}
	}
	return unplayed, played
}

// comparator returns the ascending ordering for key.
//
// The views key ranks the most-watched item first when ascending.
func comparator(key models.SortKey, counts map[string]int) func(a, b models.Item) int {
	var base func(a, b models.Item) int
	switch key {
	case models.SortTitle:
		col := collate.New(language.Und, collate.IgnoreCase)
		base = func(a, b models.Item) int { return col.CompareString(a.Title, b.Title) }
	case models.SortViews:
		base = func(a, b models.Item) int { return counts[b.ID] - counts[a.ID] }
	case models.SortAdded:
		base = func(a, b models.Item) int { return a.AddedAt.Compare(b.AddedAt) }
	case models.SortPublished:
		base = func(a, b models.Item) int { return a.PublishedAt.Compare(b.PublishedAt) }
	default:
		base = func(a, b models.Item) int { return 0 }
	}
	return base
}

// Rotate returns up to n items starting at currentID and wrapping around.
// When currentID is absent the rotation starts at the first item.
func Rotate(items []models.Item, currentID string, n int) []models.Item {
	if len(items) == 0 || n <= 0 {
		return []models.Item{}
	}

	start := max(0, slices.IndexFunc(items, func(it models.Item) bool { return it.ID == currentID }))
	count := min(n, len(items))

	out := make([]models.Item, 0, count)
	for i := range count {
		out = append(out, items[(start+i)%len(items)])
	}
	return out
}

// Prefix returns the first limit items.
func Prefix(items []models.Item, limit int) []models.Item {
	return slices.Clone(items[:min(max(limit, 0), len(items))])
}

// IndexOf returns the position of id in items, or -1.
func IndexOf(items []models.Item, id string) int {
	return slices.IndexFunc(items, func(it models.Item) bool { return it.ID == id })
}
