package ui

import (
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/DaanHessen/basis-tower/internal/lesson"
)

type palette struct {
	Background lipgloss.Color
	Panel      lipgloss.Color
	Text       lipgloss.Color
	Muted      lipgloss.Color
	Accent     lipgloss.Color
	Border     lipgloss.Color
	Warning    lipgloss.Color
	Ground     lipgloss.Color

	Blue   lipgloss.Color
	Green  lipgloss.Color
	Red    lipgloss.Color
	Amber  lipgloss.Color
	Purple lipgloss.Color
}

var palettes = map[string]palette{
	"ledger": {
		Background: lipgloss.Color("#0f172a"),
		Panel:      lipgloss.Color("#1e293b"),
		Text:       lipgloss.Color("#f1f5f9"),
		Muted:      lipgloss.Color("#94a3b8"),
		Accent:     lipgloss.Color("#38bdf8"),
		Border:     lipgloss.Color("#334155"),
		Warning:    lipgloss.Color("#f97316"),
		Ground:     lipgloss.Color("#64748b"),
		Blue:       lipgloss.Color("#3b82f6"),
		Green:      lipgloss.Color("#22c55e"),
		Red:        lipgloss.Color("#ef4444"),
		Amber:      lipgloss.Color("#f59e0b"),
		Purple:     lipgloss.Color("#a855f7"),
	},
	"catppuccin": {
		Background: lipgloss.Color("#1e1e2e"),
		Panel:      lipgloss.Color("#313244"),
		Text:       lipgloss.Color("#cdd6f4"),
		Muted:      lipgloss.Color("#a6adc8"),
		Accent:     lipgloss.Color("#cba6f7"),
		Border:     lipgloss.Color("#585b70"),
		Warning:    lipgloss.Color("#f9e2af"),
		Ground:     lipgloss.Color("#6c7086"),
		Blue:       lipgloss.Color("#89b4fa"),
		Green:      lipgloss.Color("#a6e3a1"),
		Red:        lipgloss.Color("#f38ba8"),
		Amber:      lipgloss.Color("#fab387"),
		Purple:     lipgloss.Color("#cba6f7"),
	},
	"gruvbox": {
		Background: lipgloss.Color("#282828"),
		Panel:      lipgloss.Color("#3c3836"),
		Text:       lipgloss.Color("#ebdbb2"),
		Muted:      lipgloss.Color("#a89984"),
		Accent:     lipgloss.Color("#fabd2f"),
		Border:     lipgloss.Color("#665c54"),
		Warning:    lipgloss.Color("#fe8019"),
		Ground:     lipgloss.Color("#7c6f64"),
		Blue:       lipgloss.Color("#83a598"),
		Green:      lipgloss.Color("#b8bb26"),
		Red:        lipgloss.Color("#fb4934"),
		Amber:      lipgloss.Color("#fabd2f"),
		Purple:     lipgloss.Color("#d3869b"),
	},
	"solarized_dark": {
		Background: lipgloss.Color("#002b36"),
		Panel:      lipgloss.Color("#073642"),
		Text:       lipgloss.Color("#fdf6e3"),
		Muted:      lipgloss.Color("#93a1a1"),
		Accent:     lipgloss.Color("#b58900"),
		Border:     lipgloss.Color("#586e75"),
		Warning:    lipgloss.Color("#cb4b16"),
		Ground:     lipgloss.Color("#657b83"),
		Blue:       lipgloss.Color("#268bd2"),
		Green:      lipgloss.Color("#859900"),
		Red:        lipgloss.Color("#dc322f"),
		Amber:      lipgloss.Color("#b58900"),
		Purple:     lipgloss.Color("#6c71c4"),
	},
}

const defaultTheme = "ledger"

func paletteFor(name string) palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes[defaultTheme]
}

// color maps a section color onto the palette.
func (p palette) color(c lesson.Color) lipgloss.Color {
	switch c {
	case lesson.ColorGreen:
		return p.Green
	case lesson.ColorRed:
		return p.Red
	case lesson.ColorAmber:
		return p.Amber
	case lesson.ColorPurple:
		return p.Purple
	}
	return p.Blue
}

func themeNames() []string {
	names := make([]string, 0, len(palettes))
	for k := range palettes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func nextThemeName(current string, step int) string {
	names := themeNames()
	if len(names) == 0 {
		return current
	}
	idx := 0
	for i, name := range names {
		if name == current {
			idx = i
			break
		}
	}
	idx = (idx + step) % len(names)
	if idx < 0 {
		idx += len(names)
	}
	return names[idx]
}
