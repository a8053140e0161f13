package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
	tu "github.com/desertthunder/ytloop/internal/testing"
)

type memoryCache struct {
	entries  map[string]time.Duration
	gone     map[string]bool
	readErr  error
	writeErr error
	saves    int
}

func (m *memoryCache) Durations(ids []string) (map[string]time.Duration, []string, error) {
	if m.readErr != nil {
		return nil, nil, m.readErr
	}
	out := map[string]time.Duration{}
	var unavailable []string
	for _, id := range ids {
		if d, ok := m.entries[id]; ok {
			out[id] = d
		} else if m.gone[id] {
			unavailable = append(unavailable, id)
		}
	}
	return out, unavailable, nil
}

func (m *memoryCache) SaveDurations(d map[string]time.Duration, unavailable []string) error {
	m.saves++
	if m.writeErr != nil {
		return m.writeErr
	}
	for id, v := range d {
		m.entries[id] = v
	}
	for _, id := range unavailable {
		m.gone[id] = true
	}
	return nil
}

func newCachedSource() (*CachedSource, *tu.MockSource, *memoryCache) {
	upstream := tu.NewMockSource(
		[]models.Collection{{ID: "L"}},
		map[string][]models.Item{"L": tu.Items("L", "a", "b")},
	)
	upstream.SetDuration("vid-a", time.Minute)
	upstream.SetDuration("vid-b", 2*time.Minute)

	cache := &memoryCache{entries: map[string]time.Duration{}, gone: map[string]bool{}}
	return NewCachedSource(upstream, cache, shared.NewLogger(io.Discard)), upstream, cache
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	ids := []string{"vid-a", "vid-b", "vid-unknown"}

	t.Run("second lookup is served from the cache", func(t *testing.T) {
		src, upstream, _ := newCachedSource()

		for range 2 {
			got, err := src.Durations(ctx, ids[:2])
			if err != nil {
				t.Fatalf("Durations() error = %v", err)
			}
			if got["vid-a"] != time.Minute || got["vid-b"] != 2*time.Minute {
				t.Errorf("unexpected durations %v", got)
			}
		}
		if n := upstream.Calls("Durations"); n != 1 {
			t.Errorf("expected one upstream lookup, got %d", n)
		}
	})

	t.Run("only missing ids go upstream", func(t *testing.T) {
		src, upstream, cache := newCachedSource()
		cache.entries["vid-a"] = 5 * time.Second

		got, err := src.Durations(ctx, ids)
		if err != nil {
			t.Fatalf("Durations() error = %v", err)
		}
		if got["vid-a"] != 5*time.Second {
			t.Errorf("expected the cached value for vid-a, got %v", got["vid-a"])
		}
		if _, ok := got["vid-unknown"]; ok {
			t.Error("unknown ids stay absent")
		}
		if upstream.Calls("Durations") != 1 || cache.entries["vid-b"] != 2*time.Minute {
			t.Errorf("expected vid-b fetched and saved, cache = %v", cache.entries)
		}
	})

	t.Run("ids without a duration are not asked for twice", func(t *testing.T) {
		src, upstream, cache := newCachedSource()

		for range 2 {
			got, err := src.Durations(ctx, ids)
			if err != nil {
				t.Fatalf("Durations() error = %v", err)
			}
			if _, ok := got["vid-unknown"]; ok || len(got) != 2 {
				t.Errorf("unexpected durations %v", got)
			}
		}
		if n := upstream.Calls("Durations"); n != 1 {
			t.Errorf("expected one upstream lookup, got %d", n)
		}
		if !cache.gone["vid-unknown"] {
			t.Error("expected vid-unknown remembered as unavailable")
		}
	})

	t.Run("cache failures fall through", func(t *testing.T) {
		src, _, cache := newCachedSource()
		cache.readErr = errors.New("disk gone")
		cache.writeErr = errors.New("disk gone")

		got, err := src.Durations(ctx, ids[:2])
		if err != nil {
			t.Fatalf("Durations() error = %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected upstream durations, got %v", got)
		}
	})

	t.Run("upstream error is returned and nothing saved", func(t *testing.T) {
		src, upstream, cache := newCachedSource()
		upstream.SetErr(shared.ErrForbidden)

		if _, err := src.Durations(ctx, ids); !errors.Is(err, shared.ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
		if cache.saves != 0 {
			t.Errorf("expected no save, got %d", cache.saves)
		}
	})

	t.Run("other methods pass through", func(t *testing.T) {
		src, upstream, _ := newCachedSource()
		items, err := src.Items(ctx, "L")
		if err != nil || len(items) != 2 {
			t.Errorf("Items() = %v, %v", items, err)
		}
		if _, err := src.Collections(ctx); err != nil || upstream.Calls("Collections") != 1 {
			t.Errorf("Collections() error = %v", err)
		}
	})

	t.Run("wrapping twice is a no-op", func(t *testing.T) {
		src, _, cache := newCachedSource()
		if again := NewCachedSource(src, cache, nil); again != src {
			t.Error("expected the same CachedSource")
		}
	})
}
