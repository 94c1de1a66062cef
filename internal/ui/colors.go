package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"
)

// themes maps a prefs theme name to its palette colors: title, ok, error, warning, muted.
var themes = map[string][5]string{
	"violet":    {"#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262"},
	"solarized": {"#268bd2", "#859900", "#dc322f", "#b58900", "#586e75"},
	"mono":      {"#FFFFFF", "#DDDDDD", "#FFFFFF", "#BBBBBB", "#777777"},
}

// Themes returns the available theme names in order.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for n := range themes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// interface Painter defines coloring text with [lipgloss] styles
type Painter interface {
	On(string, lipgloss.Color) string // Sets background color
	As(string, lipgloss.Color) string // Sets foreground color
}

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	name   string
	accent lipgloss.Color
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	tab    lipgloss.Style
	active lipgloss.Style
	card   lipgloss.Style
	modal  lipgloss.Style
}

var _ Painter = (*Palette)(nil)

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		accent: lipgloss.Color(t),
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		tab:    NewStyle(h).Padding(0, 2),
		active: NewBold(t).Padding(0, 2).Underline(true),
		card:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(h)).Padding(0, 1),
		modal:  lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color(t)).Padding(1, 2),
	}
}

// PaletteFor returns the palette for a theme name, falling back to violet.
func PaletteFor(name string) *Palette {
	c, ok := themes[name]
	if !ok {
		name = "violet"
		c = themes[name]
	}
	p := NewPalette(c[0], c[1], c[2], c[3], c[4])
	p.name = name
	return p
}

// Name returns the theme name.
func (p *Palette) Name() string { return p.name }

func (p *Palette) On(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Background(c).Render(s)
}

func (p *Palette) As(s string, c lipgloss.Color) string {
	return lipgloss.NewStyle().Foreground(c).Render(s)
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
