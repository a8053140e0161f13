package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/ytloop/internal/models"
)

var _ list.Item = collectionItem{}

// collectionItem wraps [models.Collection] to implement [list.Item].
type collectionItem struct {
	collection models.Collection
}

func (i collectionItem) FilterValue() string { return i.collection.Title }
func (i collectionItem) Title() string       { return i.collection.Title }
func (i collectionItem) Description() string {
	return fmt.Sprintf("%d videos", i.collection.ItemCount)
}

func collectionItems(collections []models.Collection) []list.Item {
	items := make([]list.Item, len(collections))
	for i, c := range collections {
		items[i] = collectionItem{collection: c}
	}
	return items
}
