package playback

import (
	"github.com/desertthunder/ytloop/internal/compose"
	"github.com/desertthunder/ytloop/internal/models"
)

// Next returns the item after currentID in order, wrapping to the first.
// When currentID is not in order the first item is chosen.
func Next(order []models.Item, currentID string) (models.Item, bool) {
	return step(order, currentID, 1)
}

// Previous returns the item before currentID in order, wrapping to the last.
// When currentID is not in order the last item is chosen.
func Previous(order []models.Item, currentID string) (models.Item, bool) {
	return step(order, currentID, -1)
}

func step(order []models.Item, currentID string, delta int) (models.Item, bool) {
	n := len(order)
	if n == 0 {
		return models.Item{}, false
	}

	i := compose.IndexOf(order, currentID)
	if i < 0 {
		if delta > 0 {
			return order[0], true
		}
		return order[n-1], true
	}
	return order[(i+delta+n)%n], true
}

// Resolve returns the display list entry at index i.
func Resolve(display []models.Item, i int) (models.Item, bool) {
	if i < 0 || i >= len(display) {
		return models.Item{}, false
	}
	return display[i], true
}
