package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	enter     key.Binding
	back      key.Binding
	next      key.Binding
	previous  key.Binding
	stop      key.Binding
	search    key.Binding
	favorite  key.Binding
	favOnly   key.Binding
	sortTitle key.Binding
	sortViews key.Binding
	sortAdded key.Binding
	sortPub   key.Binding
	sortNone  key.Binding
	loop      key.Binding
	more      key.Binding
	theme     key.Binding
	sidebar   key.Binding
	volUp     key.Binding
	volDown   key.Binding
	autoplay  key.Binding
	lowPower  key.Binding
	reset     key.Binding
	refresh   key.Binding
	logout    key.Binding
	yes       key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "stop")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		favorite:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		favOnly:   key.NewBinding(key.WithKeys("F"), key.WithHelp("F", "favorites only")),
		sortTitle: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "sort title")),
		sortViews: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "sort views")),
		sortAdded: key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "sort added")),
		sortPub:   key.NewBinding(key.WithKeys("4"), key.WithHelp("4", "sort published")),
		sortNone:  key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "unsorted")),
		loop:      key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "loop window")),
		more:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "load more")),
		theme:     key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
		sidebar:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "sidebar")),
		volUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "volume up")),
		volDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "volume down")),
		autoplay:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "autoplay")),
		lowPower:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "low power")),
		reset:     key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset views")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sign out")),
		yes:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.enter, k.next, k.search, k.favorite, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back, k.next, k.previous, k.stop},
		{k.search, k.favorite, k.favOnly, k.loop, k.more},
		{k.sortTitle, k.sortViews, k.sortAdded, k.sortPub, k.sortNone},
		{k.theme, k.sidebar, k.volUp, k.volDown, k.autoplay, k.lowPower},
		{k.reset, k.refresh, k.logout, k.quit},
	}
}
