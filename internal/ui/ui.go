package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/ytloop/internal/engine"
	"github.com/desertthunder/ytloop/internal/models"
	"github.com/desertthunder/ytloop/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	CollectionsView
	ItemsView
)

const (
	sidebarWidth = 28
	volumeStep   = 5
)

// LoginFunc runs the browser sign-in and returns once the callback was handled.
type LoginFunc func(ctx context.Context) error

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	engine       *engine.Engine
	login        LoginFunc
	view         ViewState
	width        int
	height       int
	collections  list.Model
	search       textinput.Model
	searching    bool
	confirmReset bool
	signingIn    bool
	cursor       int
	status       string
	statusErr    bool
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model over e. login is invoked from the sign-in screen.
func NewModel(ctx context.Context, e *engine.Engine, login LoginFunc) *Model {
	search := textinput.New()
	search.Placeholder = "Search titles"
	search.CharLimit = 100
	search.Width = 40

	collections := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	collections.Title = "Playlists"
	collections.SetShowHelp(false)

	m := &Model{
		ctx:         ctx,
		engine:      e,
		login:       login,
		view:        LoginView,
		collections: collections,
		search:      search,
		help:        help.New(),
		keys:        newKeyMap(),
	}
	if e.Authenticated() {
		m.view = CollectionsView
		m.setCollections(e.Collections())
	}
	return m
}

// Init starts listening for engine events.
func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.collections.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.FocusMsg:
		m.engine.VisibilityRestored()
		return m, nil

	case tea.KeyMsg:
		m.engine.UserActivity()
		return m.handleKey(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == CollectionsView {
		var cmd tea.Cmd
		m.collections, cmd = m.collections.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgEngineEvent:
		ev, _ := msg.data.(engine.Event)
		m.applyEvent(ev)
		return m, m.waitForEvent()
	case MsgOpDone:
		if err := msg.err(); err != nil && !errors.Is(err, shared.ErrStaleFetch) {
			m.setStatus(err.Error(), true)
		}
	case MsgLoginDone:
		m.signingIn = false
		if err := msg.err(); err != nil {
			m.setStatus(err.Error(), true)
		}
	}
	return m, nil
}

func (m *Model) applyEvent(ev engine.Event) {
	switch ev.Kind {
	case engine.LoggedIn:
		m.view = CollectionsView
		m.setStatus(ev.Message, false)
	case engine.CollectionsLoaded:
		m.setCollections(m.engine.Collections())
		if m.view == LoginView {
			m.view = CollectionsView
		}
	case engine.ItemsLoaded, engine.DisplayChanged:
		m.clampCursor()
	case engine.NowPlaying, engine.Credited:
		m.setStatus(ev.Message, false)
	case engine.Notice:
		m.setStatus(ev.Message, true)
	case engine.LoggedOut:
		m.view = LoginView
		m.searching = false
		m.confirmReset = false
		m.cursor = 0
		m.search.Reset()
		m.search.Blur()
		m.setCollections(nil)
		m.setStatus(ev.Message, ev.Reason != engine.ReasonUser)
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}
	if m.confirmReset {
		m.confirmReset = false
		if key.Matches(msg, m.keys.yes) {
			if err := m.engine.ResetViews(); err != nil {
				m.setStatus(err.Error(), true)
			} else {
				m.setStatus("View counts reset", false)
			}
		} else {
			m.setStatus("", false)
		}
		return m, nil
	}

	switch m.view {
	case LoginView:
		return m.handleLoginKeys(msg)
	case CollectionsView:
		return m.handleCollectionsKeys(msg)
	case ItemsView:
		return m.handleItemsKeys(msg)
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if m.signingIn || m.login == nil {
			return m, nil
		}
		m.signingIn = true
		m.setStatus("Waiting for the browser sign-in...", false)
		return m, m.runLogin()
	case key.Matches(msg, m.keys.theme):
		m.toggleTheme()
	}
	return m, nil
}

func (m *Model) handleCollectionsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.collections.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.collections, cmd = m.collections.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.collections.SelectedItem().(collectionItem); ok {
			m.view = ItemsView
			m.cursor = 0
			id := selected.collection.ID
			return m, m.run(func(ctx context.Context) error {
				_, err := m.engine.SelectCollection(ctx, id)
				return err
			})
		}
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.engine.View().Selected != "" {
			m.view = ItemsView
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.run(func(ctx context.Context) error {
			_, err := m.engine.RefreshCollections(ctx)
			return err
		})
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.theme):
		m.toggleTheme()
		return m, nil
	}

	var cmd tea.Cmd
	m.collections, cmd = m.collections.Update(msg)
	return m, cmd
}

func (m *Model) handleItemsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	e := m.engine

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = CollectionsView
	case key.Matches(msg, m.keys.up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.down):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, m.keys.enter):
		i := m.cursor
		return m, m.run(func(ctx context.Context) error { return e.SelectDisplayIndex(ctx, i) })
	case key.Matches(msg, m.keys.next):
		return m, m.run(e.Next)
	case key.Matches(msg, m.keys.previous):
		return m, m.run(e.Previous)
	case key.Matches(msg, m.keys.stop):
		return m, m.run(e.Stop)
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.SetValue(e.View().Query.Search)
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.favorite):
		if item, ok := m.highlighted(); ok {
			if _, err := e.ToggleFavorite(item.ID); err != nil {
				m.setStatus(err.Error(), true)
			}
		}
	case key.Matches(msg, m.keys.favOnly):
		e.SetFavoritesOnly(!e.View().Query.FavoritesOnly)
		m.cursor = 0
	case key.Matches(msg, m.keys.sortTitle):
		e.SortBy(models.SortTitle)
	case key.Matches(msg, m.keys.sortViews):
		e.SortBy(models.SortViews)
	case key.Matches(msg, m.keys.sortAdded):
		e.SortBy(models.SortAdded)
	case key.Matches(msg, m.keys.sortPub):
		e.SortBy(models.SortPublished)
	case key.Matches(msg, m.keys.sortNone):
		e.SortBy(models.SortNone)
	case key.Matches(msg, m.keys.loop):
		m.report(e.SetLoopWindow(!e.Preferences().LoopWindow))
	case key.Matches(msg, m.keys.more):
		e.LoadMore()
	case key.Matches(msg, m.keys.theme):
		m.toggleTheme()
	case key.Matches(msg, m.keys.sidebar):
		_, err := e.ToggleSidebar()
		m.report(err)
	case key.Matches(msg, m.keys.volUp):
		return m, m.volume(volumeStep)
	case key.Matches(msg, m.keys.volDown):
		return m, m.volume(-volumeStep)
	case key.Matches(msg, m.keys.autoplay):
		m.report(e.SetAutoplay(!e.Preferences().Autoplay))
	case key.Matches(msg, m.keys.lowPower):
		m.report(e.SetLowPower(!e.Preferences().LowPower))
	case key.Matches(msg, m.keys.reset):
		m.confirmReset = true
		m.setStatus("Reset all view counts? (y/n)", false)
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	m.clampCursor()
	return m, nil
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		m.search.Reset()
		m.engine.SetSearch("")
		m.cursor = 0
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.engine.SetSearch(m.search.Value())
	m.cursor = 0
	return m, cmd
}

func (m *Model) toggleTheme() {
	_, err := m.engine.ToggleTheme()
	m.report(err)
}

func (m *Model) report(err error) {
	if err != nil {
		m.setStatus(err.Error(), true)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) setCollections(collections []models.Collection) {
	m.collections.SetItems(collectionItems(collections))
}

func (m *Model) highlighted() (models.Item, bool) {
	display := m.engine.Display()
	if m.cursor < 0 || m.cursor >= len(display) {
		return models.Item{}, false
	}
	return display[m.cursor], true
}

func (m *Model) clampCursor() {
	n := len(m.engine.Display())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// run executes fn off the update loop and reports its error.
func (m *Model) run(fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg(fn(m.ctx))
	}
}

func (m *Model) runLogin() tea.Cmd {
	return func() tea.Msg {
		return loginDoneMsg(m.login(m.ctx))
	}
}

func (m *Model) logout() tea.Cmd {
	return m.run(func(ctx context.Context) error {
		m.engine.Logout(ctx, engine.ReasonUser)
		return nil
	})
}

func (m *Model) volume(delta int) tea.Cmd {
	target := m.engine.Preferences().Volume + delta
	return m.run(func(ctx context.Context) error {
		_, err := m.engine.SetVolume(ctx, target)
		return err
	})
}

// waitForEvent blocks on the next engine event. The handler re-arms it.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev, ok := <-m.engine.Events():
			if !ok {
				return nil
			}
			return eventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	state := m.engine.View()
	p := paletteFor(state.Preferences.Theme)

	var body string
	switch m.view {
	case LoginView:
		body = m.renderLogin(p)
	case CollectionsView:
		body = m.collections.View()
	case ItemsView:
		body = m.renderItems(p, state)
	}

	if m.view != LoginView && state.Preferences.ShowSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidebar(p, state), body)
	}

	var b strings.Builder
	b.WriteString(body)
	b.WriteString("\n\n")
	if m.status != "" {
		style := p.ok
		if m.statusErr {
			style = p.err
		}
		b.WriteString(style.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(m.help.ShortHelpView(m.helpKeys()))
	return b.String()
}

func (m *Model) helpKeys() []key.Binding {
	switch m.view {
	case LoginView:
		return []key.Binding{signInKey, m.keys.theme, m.keys.quit}
	case CollectionsView:
		return []key.Binding{m.keys.enter, m.keys.refresh, m.keys.logout, m.keys.quit}
	default:
		return m.keys.ShortHelp()
	}
}

var signInKey = key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "sign in"))

func (m *Model) renderLogin(p *Palette) string {
	var b strings.Builder
	b.WriteString(p.title.Render("ytloop"))
	b.WriteString("\n")
	if m.signingIn {
		b.WriteString(p.warn.Render("Finish signing in with Google in your browser."))
	} else {
		b.WriteString(p.text.Render("Sign in with your YouTube account to load your playlists."))
	}
	return b.String()
}

func (m *Model) renderSidebar(p *Palette, state engine.View) string {
	var b strings.Builder
	b.WriteString(p.help.Render("Playlists"))
	b.WriteString("\n")
	for _, c := range state.Collections {
		title := shared.Truncate(c.Title, sidebarWidth-2)
		if c.ID == state.Selected {
			b.WriteString(p.selected.Render("> " + title))
		} else {
			b.WriteString(p.text.Render("  " + title))
		}
		b.WriteString("\n")
	}
	return p.sidebar.Width(sidebarWidth).Render(strings.TrimRight(b.String(), "\n"))
}

func (m *Model) renderItems(p *Palette, state engine.View) string {
	var b strings.Builder

	title := "Playlist"
	for _, c := range state.Collections {
		if c.ID == state.Selected {
			title = c.Title
		}
	}
	b.WriteString(p.title.Render(title))
	b.WriteString("\n")
	b.WriteString(p.help.Render(statusLine(state)))
	b.WriteString("\n")

	if m.searching {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	} else if state.Query.Search != "" {
		b.WriteString(p.help.Render(fmt.Sprintf("Search: %q", state.Query.Search)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case state.Loading:
		b.WriteString(p.warn.Render("Loading..."))
	case len(state.Display) == 0:
		b.WriteString(p.help.Render("No videos match."))
	default:
		for i, item := range state.Display {
			b.WriteString(m.renderRow(p, state, i, item))
			b.WriteString("\n")
		}
		if state.HasMore {
			b.WriteString(p.help.Render(fmt.Sprintf("%d of %d shown, m for more", len(state.Display), state.Matches)))
		}
	}

	if state.Current.ID != "" {
		b.WriteString("\n")
		b.WriteString(p.ok.Render("▶ " + state.Current.Title))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderRow(p *Palette, state engine.View, i int, item models.Item) string {
	marker := "  "
	if item.ID == state.Current.ID {
		marker = "▶ "
	}
	star := " "
	if state.Favorites[item.ID] {
		star = "★"
	}

	width := m.width - 16
	if state.Preferences.ShowSidebar {
		width -= sidebarWidth + 2
	}
	line := fmt.Sprintf("%s%s %s (%d)", marker, star, shared.Truncate(item.Title, max(width, 20)), state.ViewCounts[item.ID])

	if i == m.cursor {
		return p.selected.Render(line)
	}
	return p.text.Render(line)
}

func statusLine(state engine.View) string {
	parts := []string{}
	if state.Query.SortKey != models.SortNone {
		parts = append(parts, fmt.Sprintf("Sort: %s %s", state.Query.SortKey, state.Query.SortDir))
	}
	if state.Mode == models.LoopWindow {
		parts = append(parts, "Loop window")
	}
	if state.Query.FavoritesOnly {
		parts = append(parts, "Favorites")
	}
	if state.Preferences.Autoplay {
		parts = append(parts, "Autoplay")
	}
	if state.Preferences.LowPower {
		parts = append(parts, "Low power")
	}
	parts = append(parts, fmt.Sprintf("Vol %d", state.Preferences.Volume))
	return strings.Join(parts, " | ")
}
