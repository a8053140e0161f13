package compose

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/ytloop/internal/models"
	tu "github.com/desertthunder/ytloop/internal/testing"
)

func titles(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func itemIDs(items []models.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFilter(t *testing.T) {
	items := tu.Items("PL", "Lo-Fi Beats", "Jazz Night", "lofi remix", "Ambient")
	favs := map[string]bool{"vid-Jazz Night": true, "vid-lofi remix": true}

	tc := []struct {
		name  string
		query Query
		want  []string
	}{
		{name: "empty search keeps everything", query: Query{}, want: []string{"Lo-Fi Beats", "Jazz Night", "lofi remix", "Ambient"}},
		{name: "case-insensitive contains", query: Query{Search: "LOFI"}, want: []string{"lofi remix"}},
		{name: "surrounding space ignored", query: Query{Search: "  night "}, want: []string{"Jazz Night"}},
		{name: "favorites only", query: Query{FavoritesOnly: true}, want: []string{"Jazz Night", "lofi remix"}},
		{name: "search and favorites", query: Query{Search: "i", FavoritesOnly: true}, want: []string{"Jazz Night", "lofi remix"}},
		{name: "no match", query: Query{Search: "metal"}, want: []string{}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := titles(Filter(items, favs, tt.query)); !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	t.Run("title ascending is case-insensitive", func(t *testing.T) {
		s := Snapshot{
			Items: tu.Items("PL", "Beta", "alpha", "Gamma"),
			Query: Query{SortKey: models.SortTitle, SortDir: models.Ascending},
		}
		want := []string{"alpha", "Beta", "Gamma"}
		if got := titles(Order(s)); !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}

		s.Query.SortDir = models.Descending
		slices.Reverse(want)
		if got := titles(Order(s)); !slices.Equal(got, want) {
			t.Errorf("descending got %v, want %v", got, want)
		}
	})

	t.Run("no key keeps partitioned source order", func(t *testing.T) {
		s := Snapshot{
			Items:      tu.Items("PL", "c", "a", "b", "d"),
			ViewCounts: map[string]int{"vid-a": 2},
		}
		want := []string{"c", "b", "d", "a"}
		if got := titles(Order(s)); !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("views ascending ranks most-watched first", func(t *testing.T) {
		s := Snapshot{
			Items:      tu.Items("PL", "once", "never", "thrice", "twice"),
			ViewCounts: map[string]int{"vid-once": 1, "vid-thrice": 3, "vid-twice": 2},
			Query:      Query{SortKey: models.SortViews, SortDir: models.Ascending},
		}
		want := []string{"never", "thrice", "twice", "once"}
		if got := titles(Order(s)); !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}

		s.Query.SortDir = models.Descending
		want = []string{"never", "once", "twice", "thrice"}
		if got := titles(Order(s)); !slices.Equal(got, want) {
			t.Errorf("descending got %v, want %v", got, want)
		}
	})

	t.Run("added and published", func(t *testing.T) {
		items := tu.Items("PL", "first", "second", "third")
		s := Snapshot{Items: items, Query: Query{SortKey: models.SortAdded, SortDir: models.Descending}}
		if got := titles(Order(s)); !slices.Equal(got, []string{"third", "second", "first"}) {
			t.Errorf("added desc got %v", got)
		}

		s.Query = Query{SortKey: models.SortPublished, SortDir: models.Ascending}
		if got := titles(Order(s)); !slices.Equal(got, []string{"third", "second", "first"}) {
			t.Errorf("published asc got %v", got)
		}
	})

	t.Run("descending reverses ties exactly", func(t *testing.T) {
		items := tu.Items("PL", "a", "b", "c", "d", "e")
		for i := range items {
			items[i].Title = "same"
		}
		counts := map[string]int{"vid-b": 2, "vid-c": 2, "vid-d": 1, "vid-e": 2}

		for _, key := range []models.SortKey{models.SortViews, models.SortTitle} {
			s := Snapshot{Items: items, ViewCounts: counts, Query: Query{SortKey: key, SortDir: models.Ascending}}
			asc := itemIDs(Order(s))
			s.Query.SortDir = models.Descending
			desc := itemIDs(Order(s))

			if asc[0] != "vid-a" || desc[0] != "vid-a" {
				t.Fatalf("%s: expected the unwatched item first, got %v and %v", key, asc, desc)
			}
			want := slices.Clone(asc[1:])
			slices.Reverse(want)
			if !slices.Equal(desc[1:], want) {
				t.Errorf("%s: descending %v, want %v", key, desc[1:], want)
			}
		}
	})

	t.Run("does not modify the snapshot", func(t *testing.T) {
		items := tu.Items("PL", "b", "a")
		s := Snapshot{Items: items, Query: Query{SortKey: models.SortTitle, SortDir: models.Ascending}}
		_ = Order(s)
		if items[0].Title != "b" {
			t.Error("input slice was reordered")
		}
	})
}

func TestUnplayedFirst(t *testing.T) {
	var names []string
	for i := range 24 {
		names = append(names, fmt.Sprintf("%c-item-%02d", 'A'+(i*7)%24, i))
	}
	items := tu.Items("PL", names...)
	for i := range items {
		items[i].AddedAt = items[i].AddedAt.Add(time.Duration((i*5)%24) * time.Minute)
	}

	counts := map[string]int{}
	favs := map[string]bool{}
	for i, it := range items {
		if i%3 == 0 {
			counts[it.ID] = i%5 + 1
		}
		if i%4 == 0 {
			favs[it.ID] = true
		}
	}

	keys := []models.SortKey{models.SortNone, models.SortTitle, models.SortViews, models.SortAdded, models.SortPublished}
	dirs := []models.SortDirection{models.Ascending, models.Descending}

	for _, key := range keys {
		for _, dir := range dirs {
			for _, favOnly := range []bool{false, true} {
				name := fmt.Sprintf("%s/%s/favorites=%v", key, dir, favOnly)
				t.Run(name, func(t *testing.T) {
					s := Snapshot{
						Items:      items,
						ViewCounts: counts,
						Favorites:  favs,
						Query:      Query{SortKey: key, SortDir: dir, FavoritesOnly: favOnly},
					}

					for _, mode := range []models.DisplayMode{models.FullList, models.LoopWindow} {
						list := Compose(s, Window{Mode: mode, Limit: 100, Size: 100})
						seenPlayed := false
						for _, it := range list {
							if counts[it.ID] > 0 {
								seenPlayed = true
							} else if seenPlayed {
								t.Fatalf("unwatched %s after a watched item in %v", it.Title, titles(list))
							}
						}
					}

					ordered := Order(s)
					seenPlayed := false
					for _, it := range ordered {
						if counts[it.ID] > 0 {
							seenPlayed = true
						} else if seenPlayed {
							t.Fatalf("unwatched %s after a watched item", it.Title)
						}
					}
				})
			}
		}
	}
}

func TestCompose(t *testing.T) {
	var names []string
	for i := range 25 {
		names = append(names, fmt.Sprintf("t%02d", i))
	}
	items := tu.Items("PL", names...)
	s := Snapshot{Items: items}

	t.Run("full list starts at ten", func(t *testing.T) {
		got := Compose(s, Window{Mode: models.FullList})
		if len(got) != 10 || got[0].Title != "t00" || got[9].Title != "t09" {
			t.Errorf("unexpected list %v", titles(got))
		}
	})

	t.Run("full list grows by limit", func(t *testing.T) {
		if got := Compose(s, Window{Mode: models.FullList, Limit: 20}); len(got) != 20 {
			t.Errorf("expected 20 items, got %d", len(got))
		}
		if got := Compose(s, Window{Mode: models.FullList, Limit: 30}); len(got) != 25 {
			t.Errorf("expected all 25 items, got %d", len(got))
		}
	})

	t.Run("loop window rotates around the current item", func(t *testing.T) {
		got := titles(Compose(s, Window{Mode: models.LoopWindow, CurrentID: "vid-t20"}))
		want := []string{"t20", "t21", "t22", "t23", "t24", "t00", "t01", "t02", "t03", "t04"}
		if !slices.Equal(got, want) {
			t.Errorf("got %v, want %v", got, want)
		}
	})

	t.Run("loop window without a current item starts at the top", func(t *testing.T) {
		got := Compose(s, Window{Mode: models.LoopWindow, CurrentID: "gone"})
		if len(got) != 10 || got[0].Title != "t00" {
			t.Errorf("unexpected list %v", titles(got))
		}
	})

	t.Run("loop window never repeats items in short lists", func(t *testing.T) {
		short := Snapshot{Items: tu.Items("PL", "a", "b", "c")}
		got := titles(Compose(short, Window{Mode: models.LoopWindow, CurrentID: "vid-b"}))
		if !slices.Equal(got, []string{"b", "c", "a"}) {
			t.Errorf("got %v", got)
		}
	})

	t.Run("every element comes from the snapshot", func(t *testing.T) {
		got := Compose(Snapshot{Items: items, Query: Query{Search: "t1"}}, Window{Mode: models.FullList, Limit: 50})
		for _, it := range got {
			if IndexOf(items, it.ID) < 0 {
				t.Errorf("fabricated item %s", it.ID)
			}
		}
		if len(got) != 10 {
			t.Errorf("expected t10..t19, got %v", titles(got))
		}
	})

	t.Run("empty snapshot", func(t *testing.T) {
		if got := Compose(Snapshot{}, Window{Mode: models.LoopWindow}); len(got) != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
		if got := Compose(Snapshot{}, Window{}); len(got) != 0 {
			t.Errorf("expected empty list, got %v", got)
		}
	})
}
