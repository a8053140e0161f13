package ui

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytloop/internal/auth"
	"github.com/desertthunder/ytloop/internal/engine"
	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
	"github.com/desertthunder/ytloop/internal/store"
	tu "github.com/desertthunder/ytloop/internal/testing"
)

type harness struct {
	engine *engine.Engine
	player *tu.MockPlayer
	logins int
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	clock := shared.NewFakeClock(time.Date(2025, 7, 4, 18, 0, 0, 0, time.UTC))
	logger := log.New(io.Discard)
	creds := auth.New(auth.Options{
		Credentials: shared.YouTubeConfig{
			ClientID:    "client-123",
			RedirectURI: "http://127.0.0.1:3000/callback",
			RevokeURL:   server.URL,
		},
		Clock:      clock,
		HTTPClient: server.Client(),
		Logger:     logger,
	})

	source := tu.NewMockSource(
		[]models.Collection{{ID: "A", Title: "Alphabet", ItemCount: 4}, {ID: "B", Title: "Birds", ItemCount: 2}},
		map[string][]models.Item{
			"A": tu.Items("A", "alpha", "bravo", "charlie", "delta"),
			"B": tu.Items("B", "egret", "finch"),
		},
	)
	prefs, err := store.LoadPreferenceStore(tu.NewMemoryDurable())
	if err != nil {
		t.Fatalf("LoadPreferenceStore() error = %v", err)
	}

	player := &tu.MockPlayer{}
	e, err := engine.New(engine.Options{
		Credentials: creds,
		Source:      source,
		Preferences: prefs,
		Player:      player,
		Clock:       clock,
		Logger:      logger,
		EventBuffer: 256,
	})
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })

	return &harness{engine: e, player: player}
}

func (h *harness) signIn(t *testing.T) {
	t.Helper()
	authURL, err := h.engine.BeginLogin()
	if err != nil {
		t.Fatalf("BeginLogin() error = %v", err)
	}
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("failed to parse auth url: %v", err)
	}
	v := url.Values{}
	v.Set("access_token", "ya29.token")
	v.Set("token_type", "Bearer")
	v.Set("expires_in", "3600")
	v.Set("state", u.Query().Get("state"))
	if err := h.engine.CompleteLogin(context.Background(), "#"+v.Encode()); err != nil {
		t.Fatalf("CompleteLogin() error = %v", err)
	}
}

func (h *harness) model() *Model {
	return NewModel(context.Background(), h.engine, func(ctx context.Context) error {
		h.logins++
		return nil
	})
}

func press(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send delivers msg and runs the returned command once, feeding its result back.
func send(t *testing.T, m *Model, msg tea.Msg) {
	t.Helper()
	_, cmd := m.Update(msg)
	if cmd == nil {
		return
	}
	if out, ok := cmd().(Msg); ok {
		m.Update(out)
	}
}

func openAlphabet(t *testing.T, h *harness) *Model {
	t.Helper()
	h.signIn(t)
	m := h.model()
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	send(t, m, press("enter"))
	if m.view != ItemsView {
		t.Fatalf("expected items view, got %v", m.view)
	}
	return m
}

func TestLoginView(t *testing.T) {
	t.Run("signed out starts on the login screen", func(t *testing.T) {
		h := newHarness(t)
		m := h.model()
		if m.view != LoginView {
			t.Fatalf("expected login view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Sign in") {
			t.Errorf("expected sign in prompt, got:\n%s", m.View())
		}
	})

	t.Run("enter runs the login once", func(t *testing.T) {
		h := newHarness(t)
		m := h.model()

		_, cmd := m.Update(press("enter"))
		if cmd == nil || !m.signingIn {
			t.Fatal("expected a pending sign-in")
		}
		if _, again := m.Update(press("enter")); again != nil {
			t.Error("a second enter should not start another sign-in")
		}

		m.Update(cmd())
		if h.logins != 1 || m.signingIn {
			t.Errorf("expected one completed login, got %d (signingIn=%v)", h.logins, m.signingIn)
		}
	})

	t.Run("failed login shows the error", func(t *testing.T) {
		h := newHarness(t)
		m := NewModel(context.Background(), h.engine, func(ctx context.Context) error {
			return errors.New("login timed out")
		})
		send(t, m, press("enter"))
		if !m.statusErr || !strings.Contains(m.View(), "login timed out") {
			t.Errorf("expected error status, got %q", m.status)
		}
	})

	t.Run("collections event leaves the login screen", func(t *testing.T) {
		h := newHarness(t)
		m := h.model()
		h.signIn(t)

		m.Update(eventMsg(engine.Event{Kind: engine.CollectionsLoaded, Count: 2}))
		if m.view != CollectionsView {
			t.Fatalf("expected collections view, got %v", m.view)
		}
		if got := len(m.collections.Items()); got != 2 {
			t.Errorf("expected 2 playlists, got %d", got)
		}
	})
}

func TestItemsView(t *testing.T) {
	t.Run("renders the display list", func(t *testing.T) {
		m := openAlphabet(t, newHarness(t))
		out := m.View()
		for _, want := range []string{"Alphabet", "alpha", "delta", "Vol 50"} {
			if !strings.Contains(out, want) {
				t.Errorf("view missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("cursor and enter play the highlighted item", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(press("j"))
		m.Update(press("j"))
		m.Update(press("k"))
		send(t, m, press("enter"))

		if loaded := h.player.Loaded(); len(loaded) != 1 || loaded[0] != "vid-bravo" {
			t.Fatalf("expected vid-bravo to load, got %v", loaded)
		}
		if !strings.Contains(m.View(), "▶ bravo") {
			t.Errorf("expected now playing line:\n%s", m.View())
		}

		send(t, m, press("n"))
		if cur, _ := h.engine.Current(); cur.ID != "vid-charlie" {
			t.Errorf("expected next to play vid-charlie, got %q", cur.ID)
		}
	})

	t.Run("cursor stays in range", func(t *testing.T) {
		m := openAlphabet(t, newHarness(t))
		for range 10 {
			m.Update(press("j"))
		}
		if m.cursor != 3 {
			t.Errorf("expected cursor on the last row, got %d", m.cursor)
		}
	})

	t.Run("search narrows the list", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(press("/"))
		if !m.searching {
			t.Fatal("expected search mode")
		}
		m.Update(press("c"))
		m.Update(press("h"))
		if got := h.engine.View().Query.Search; got != "ch" {
			t.Errorf("expected query ch, got %q", got)
		}
		if got := len(h.engine.Display()); got != 1 {
			t.Errorf("expected 1 match, got %d", got)
		}

		m.Update(press("esc"))
		if m.searching || len(h.engine.Display()) != 4 {
			t.Error("esc should clear the search")
		}
	})

	t.Run("favorite and favorites only", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(press("j"))
		m.Update(press("f"))
		if favs := h.engine.Favorites(); len(favs) != 1 || favs[0] != "vid-bravo" {
			t.Fatalf("expected vid-bravo favorited, got %v", favs)
		}

		m.Update(press("F"))
		if display := h.engine.Display(); len(display) != 1 || display[0].ID != "vid-bravo" {
			t.Errorf("expected only the favorite, got %v", display)
		}
		if m.cursor != 0 {
			t.Errorf("expected cursor reset, got %d", m.cursor)
		}
	})

	t.Run("sort keys", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(press("1"))
		q := h.engine.View().Query
		if q.SortKey != models.SortTitle {
			t.Fatalf("expected title sort, got %v", q.SortKey)
		}
		m.Update(press("1"))
		if h.engine.View().Query.SortDir == q.SortDir {
			t.Error("pressing the same sort key should flip direction")
		}
		if !strings.Contains(m.View(), "Sort: title") {
			t.Errorf("expected sort in status line:\n%s", m.View())
		}
	})

	t.Run("preference toggles", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(press("t"))
		m.Update(press("a"))
		m.Update(press("L"))
		m.Update(press("w"))
		prefs := h.engine.Preferences()
		if prefs.Theme != models.ThemeDark || prefs.Autoplay || !prefs.LowPower || !prefs.LoopWindow {
			t.Errorf("unexpected preferences %+v", prefs)
		}

		send(t, m, press("+"))
		if got := h.engine.Preferences().Volume; got != 55 {
			t.Errorf("expected volume 55, got %d", got)
		}

		m.Update(press("b"))
		if h.engine.Preferences().ShowSidebar {
			t.Error("expected sidebar hidden")
		}
	})

	t.Run("reset views asks first", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(press("R"))
		if !m.confirmReset {
			t.Fatal("expected confirmation prompt")
		}
		m.Update(press("n"))
		if m.confirmReset || m.status != "" {
			t.Error("any other key should cancel")
		}

		m.Update(press("R"))
		m.Update(press("y"))
		if m.status != "View counts reset" {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("esc returns to the playlists", func(t *testing.T) {
		m := openAlphabet(t, newHarness(t))
		m.Update(press("esc"))
		if m.view != CollectionsView {
			t.Errorf("expected collections view, got %v", m.view)
		}
		m.Update(press("esc"))
		if m.view != ItemsView {
			t.Errorf("esc from playlists should return to the open playlist, got %v", m.view)
		}
	})
}

func TestLogout(t *testing.T) {
	t.Run("logged out event returns to login", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)

		m.Update(eventMsg(engine.Event{
			Kind:    engine.LoggedOut,
			Reason:  engine.ReasonIdle,
			Message: "Signed out after inactivity.",
		}))
		if m.view != LoginView {
			t.Fatalf("expected login view, got %v", m.view)
		}
		if !m.statusErr || !strings.Contains(m.View(), "inactivity") {
			t.Errorf("expected logout reason in status, got %q", m.status)
		}
		if len(m.collections.Items()) != 0 {
			t.Error("expected playlists cleared")
		}
	})

	t.Run("o signs out", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)
		send(t, m, press("o"))
		if h.engine.Authenticated() {
			t.Error("expected the session to end")
		}
	})

	t.Run("focus and keys count as activity", func(t *testing.T) {
		h := newHarness(t)
		m := openAlphabet(t, h)
		m.Update(tea.FocusMsg{})
		m.Update(press("k"))
		if !h.engine.Authenticated() {
			t.Error("activity should not end the session")
		}
	})
}

func TestPalette(t *testing.T) {
	if paletteFor(models.Theme("neon")) != palettes[models.ThemeLight] {
		t.Error("unknown themes should fall back to light")
	}
	if paletteFor(models.ThemeDark) == paletteFor(models.ThemeLight) {
		t.Error("expected distinct palettes")
	}
}
