package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/ytloop/internal/models"
)

var palettes = map[models.Theme]*Palette{
	models.ThemeLight: NewPalette("#CC0000", "#2E7D32", "#C62828", "#EF6C00", "#757575", "#1A1A1A"),
	models.ThemeDark:  NewPalette("#FF4E45", "#04B575", "#FF5F56", "#FFA500", "#8A8A8A", "#EDEDED"),
}

// paletteFor returns the palette of theme t, falling back to the light theme.
func paletteFor(t models.Theme) *Palette {
	if p, ok := palettes[t]; ok {
		return p
	}
	return palettes[models.ThemeLight]
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	err      lipgloss.Style
	warn     lipgloss.Style
	help     lipgloss.Style
	text     lipgloss.Style
	selected lipgloss.Style
	sidebar  lipgloss.Style
}

func NewPalette(accent, ok, errc, warn, muted, text string) *Palette {
	return &Palette{
		title:    NewBold(accent).MarginBottom(1),
		ok:       NewBold(ok),
		err:      NewBold(errc),
		warn:     NewStyle(warn),
		help:     NewEm(muted),
		text:     NewStyle(text),
		selected: NewBold(accent),
		sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(lipgloss.Color(muted)).
			PaddingRight(1).
			MarginRight(1),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
