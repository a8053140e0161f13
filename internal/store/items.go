package store

import (
	"fmt"
	"slices"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

// ItemStore holds collections and the items of the selected collection.
type ItemStore struct {
	collections []models.Collection
	selected    string
	items       []models.Item
	generation  uint64
	epoch       uint64
	loaded      bool
}

func NewItemStore() *ItemStore {
	return &ItemStore{}
}

// SetCollections replaces the collection list wholesale.
func (s *ItemStore) SetCollections(collections []models.Collection) {
	s.collections = slices.Clone(collections)
}

// Epoch changes only on [ItemStore.Clear]. A collection list fetch presents it to
// [ItemStore.CommitCollections].
func (s *ItemStore) Epoch() uint64 {
	return s.epoch
}

// CommitCollections stores a collection list fetched during epoch. A list fetched before the
// last clear is discarded.
func (s *ItemStore) CommitCollections(epoch uint64, collections []models.Collection) error {
	if epoch != s.epoch {
		return fmt.Errorf("%w: epoch %d, current %d", shared.ErrStaleFetch, epoch, s.epoch)
	}
	s.SetCollections(collections)
	return nil
}

// Collections returns a copy of the collection list.
func (s *ItemStore) Collections() []models.Collection {
	return slices.Clone(s.collections)
}

// Collection looks a collection up by id.
func (s *ItemStore) Collection(id string) (models.Collection, bool) {
	for _, c := range s.collections {
		if c.ID == id {
			return c, true
		}
	}
	return models.Collection{}, false
}

// BeginSelect records id as the selected collection, clears its items and returns the generation
// a fetch for it must present to [ItemStore.Commit].
func (s *ItemStore) BeginSelect(id string) uint64 {
	s.generation++
	s.selected = id
	s.items = nil
	s.loaded = false
	return s.generation
}

// Commit stores items fetched for generation gen.
//
// A generation other than the current one means another selection (or a clear) happened
// while the fetch was in flight, and the items are discarded.
func (s *ItemStore) Commit(gen uint64, items []models.Item) error {
	if gen != s.generation {
		return fmt.Errorf("%w: generation %d, current %d", shared.ErrStaleFetch, gen, s.generation)
	}
	s.items = slices.Clone(items)
	s.loaded = true
	return nil
}

// Selected returns the selected collection id.
func (s *ItemStore) Selected() string {
	return s.selected
}

// Loaded reports whether items for the selected collection have been committed.
func (s *ItemStore) Loaded() bool {
	return s.loaded
}

// Generation returns the current selection generation.
func (s *ItemStore) Generation() uint64 {
	return s.generation
}

// Items returns a copy of the authoritative item sequence.
func (s *ItemStore) Items() []models.Item {
	return slices.Clone(s.items)
}

// Len returns the number of items.
func (s *ItemStore) Len() int {
	return len(s.items)
}

// IndexOf returns the position of id in the authoritative sequence, or -1.
func (s *ItemStore) IndexOf(id string) int {
	return slices.IndexFunc(s.items, func(it models.Item) bool { return it.ID == id })
}

// Item returns the item with the given id.
func (s *ItemStore) Item(id string) (models.Item, bool) {
	if i := s.IndexOf(id); i >= 0 {
		return s.items[i], true
	}
	return models.Item{}, false
}

// Clear drops everything and invalidates in-flight fetches.
func (s *ItemStore) Clear() {
	s.generation++
	s.epoch++
	s.collections = nil
	s.selected = ""
	s.items = nil
	s.loaded = false
}
