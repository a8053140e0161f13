package playback

import (
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
	tu "github.com/desertthunder/ytloop/internal/testing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var start = time.Date(2025, 4, 1, 20, 0, 0, 0, time.UTC)

func sample(pos, dur int, state models.PlayerState) models.Sample {
	return models.Sample{Position: time.Duration(pos) * time.Second, Duration: time.Duration(dur) * time.Second, State: state}
}

func TestTracker(t *testing.T) {
	t.Run("credit once past the threshold", func(t *testing.T) {
		tr := NewTracker(0.6)
		tr.Reset("a", start)

		credits := 0
		for pos := 0; pos <= 100; pos += 2 {
			if tr.Observe(sample(pos, 100, models.StatePlaying), start.Add(time.Duration(pos)*time.Second)).Credit {
				credits++
				if pos != 60 {
					t.Errorf("credit at %ds, want 60s", pos)
				}
			}
		}
		if tr.End() {
			credits++
		}
		if credits != 1 {
			t.Errorf("expected exactly one credit, got %d", credits)
		}
		if !tr.Cursor().Counted {
			t.Error("expected cursor to be counted")
		}
	})

	t.Run("end before threshold credits", func(t *testing.T) {
		tr := NewTracker(0.6)
		tr.Reset("a", start)
		tr.Observe(sample(10, 100, models.StatePlaying), start)

		if obs := tr.Observe(sample(12, 100, models.StateEnded), start); !obs.Credit {
			t.Error("expected credit on end")
		}
		if tr.Observe(sample(70, 100, models.StatePlaying), start).Credit {
			t.Error("expected no second credit")
		}
	})

	t.Run("reset starts a new play-through", func(t *testing.T) {
		tr := NewTracker(0.6)
		tr.Reset("a", start)
		tr.Observe(sample(80, 100, models.StatePlaying), start)

		tr.Reset("b", start)
		if tr.Cursor().Counted || tr.Cursor().ItemID != "b" || tr.Cursor().LastTime != 0 {
			t.Errorf("unexpected cursor after reset %+v", tr.Cursor())
		}
		if !tr.Observe(sample(61, 100, models.StatePlaying), start).Credit {
			t.Error("expected credit for the new item")
		}

		tr.Reset("a", start)
		if !tr.End() {
			t.Error("replaying an item earns credit again")
		}
	})

	t.Run("unknown duration never credits by position", func(t *testing.T) {
		tr := NewTracker(0.6)
		tr.Reset("a", start)
		if tr.Observe(sample(500, 0, models.StatePlaying), start).Credit {
			t.Error("expected no credit without a duration")
		}
	})

	t.Run("nothing loaded", func(t *testing.T) {
		tr := NewTracker(0.6)
		if obs := tr.Observe(sample(90, 100, models.StatePlaying), start); obs.Credit || obs.Advanced {
			t.Errorf("expected empty observation, got %+v", obs)
		}
		if tr.End() {
			t.Error("expected no credit with nothing loaded")
		}
		if tr.Loaded() {
			t.Error("expected not loaded")
		}
	})

	t.Run("advance tracking", func(t *testing.T) {
		tr := NewTracker(0.6)
		tr.Reset("a", start)

		at := start.Add(4 * time.Second)
		if !tr.Observe(sample(4, 100, models.StatePlaying), at).Advanced {
			t.Error("expected advance")
		}
		if tr.Observe(sample(4, 100, models.StatePaused), at.Add(2*time.Second)).Advanced {
			t.Error("paused position should not count as advance")
		}
		if !tr.Cursor().LastTimeAt.Equal(at) {
			t.Errorf("expected LastTimeAt %v, got %v", at, tr.Cursor().LastTimeAt)
		}

		tr.Observe(sample(1, 100, models.StatePlaying), at)
		if !tr.Observe(sample(2, 100, models.StatePlaying), at).Advanced {
			t.Error("expected advance after seeking back")
		}
	})

	t.Run("default threshold", func(t *testing.T) {
		tr := NewTracker(0)
		tr.Reset("a", start)
		if tr.Observe(sample(59, 100, models.StatePlaying), start).Credit {
			t.Error("expected no credit below 60%")
		}
		if !tr.Observe(sample(60, 100, models.StatePlaying), start).Credit {
			t.Error("expected credit at 60%")
		}
	})
}

func TestNavigation(t *testing.T) {
	order := tu.Items("PL", "a", "b", "c")

	t.Run("next wraps to the start", func(t *testing.T) {
		got, ok := Next(order, "vid-c")
		if !ok || got.ID != "vid-a" {
			t.Errorf("Next from index 2 = %s, want vid-a", got.ID)
		}
	})

	t.Run("previous wraps to the end", func(t *testing.T) {
		got, ok := Previous(order, "vid-a")
		if !ok || got.ID != "vid-c" {
			t.Errorf("Previous from index 0 = %s, want vid-c", got.ID)
		}
	})

	t.Run("steps within the list", func(t *testing.T) {
		if got, _ := Next(order, "vid-a"); got.ID != "vid-b" {
			t.Errorf("Next(a) = %s", got.ID)
		}
		if got, _ := Previous(order, "vid-c"); got.ID != "vid-b" {
			t.Errorf("Previous(c) = %s", got.ID)
		}
	})

	t.Run("current item filtered out", func(t *testing.T) {
		if got, _ := Next(order, "gone"); got.ID != "vid-a" {
			t.Errorf("Next(gone) = %s, want vid-a", got.ID)
		}
		if got, _ := Previous(order, "gone"); got.ID != "vid-c" {
			t.Errorf("Previous(gone) = %s, want vid-c", got.ID)
		}
	})

	t.Run("single item", func(t *testing.T) {
		one := order[:1]
		if got, _ := Next(one, "vid-a"); got.ID != "vid-a" {
			t.Errorf("expected wrap onto itself, got %s", got.ID)
		}
	})

	t.Run("empty order", func(t *testing.T) {
		if _, ok := Next(nil, "vid-a"); ok {
			t.Error("expected no item")
		}
		if _, ok := Previous(nil, ""); ok {
			t.Error("expected no item")
		}
	})

	t.Run("Resolve", func(t *testing.T) {
		if got, ok := Resolve(order, 1); !ok || got.ID != "vid-b" {
			t.Errorf("Resolve(1) = %s, %v", got.ID, ok)
		}
		for _, i := range []int{-1, 3} {
			if _, ok := Resolve(order, i); ok {
				t.Errorf("Resolve(%d) should fail", i)
			}
		}
	})
}

func TestPoller(t *testing.T) {
	clock := shared.NewFakeClock(start)
	ticks := 0
	p := NewPoller(clock, func() { ticks++ })

	if p.Running() {
		t.Fatal("expected new poller to be stopped")
	}

	p.Start(2 * time.Second)
	p.Start(2 * time.Second)
	clock.Advance(10 * time.Second)
	if ticks != 5 {
		t.Errorf("expected 5 ticks at 2s, got %d", ticks)
	}

	p.Start(4 * time.Second)
	if p.Interval() != 4*time.Second {
		t.Errorf("expected interval 4s, got %v", p.Interval())
	}
	clock.Advance(8 * time.Second)
	if ticks != 7 {
		t.Errorf("expected 2 more ticks at 4s, got %d", ticks-5)
	}

	p.Stop()
	if p.Running() {
		t.Error("expected poller to be stopped")
	}
	clock.Advance(time.Minute)
	if ticks != 7 {
		t.Errorf("expected no ticks after stop, got %d", ticks-7)
	}
	if clock.Pending() != 0 {
		t.Errorf("expected no timers after stop, got %d", clock.Pending())
	}
	p.Stop()
}
