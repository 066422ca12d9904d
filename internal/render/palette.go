package render

import (
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Palette is the color scheme of the chat screen.
type Palette struct {
	Name string

	Border    lipgloss.Color
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Error     lipgloss.Color

	Text     lipgloss.Color
	TextDim  lipgloss.Color
	TextMute lipgloss.Color
}

var palettes = map[string]Palette{
	"tokyonight": {
		Name:      "tokyonight",
		Border:    lipgloss.Color("#414868"),
		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Error:     lipgloss.Color("#f7768e"),
		Text:      lipgloss.Color("#c0caf5"),
		TextDim:   lipgloss.Color("#565f89"),
		TextMute:  lipgloss.Color("#3b4261"),
	},
	"catppuccin": {
		Name:      "catppuccin",
		Border:    lipgloss.Color("#45475a"),
		Primary:   lipgloss.Color("#89b4fa"),
		Secondary: lipgloss.Color("#a6e3a1"),
		Accent:    lipgloss.Color("#cba6f7"),
		Error:     lipgloss.Color("#f38ba8"),
		Text:      lipgloss.Color("#cdd6f4"),
		TextDim:   lipgloss.Color("#6c7086"),
		TextMute:  lipgloss.Color("#45475a"),
	},
	"dracula": {
		Name:      "dracula",
		Border:    lipgloss.Color("#6272a4"),
		Primary:   lipgloss.Color("#8be9fd"),
		Secondary: lipgloss.Color("#50fa7b"),
		Accent:    lipgloss.Color("#ff79c6"),
		Error:     lipgloss.Color("#ff5555"),
		Text:      lipgloss.Color("#f8f8f2"),
		TextDim:   lipgloss.Color("#6272a4"),
		TextMute:  lipgloss.Color("#44475a"),
	},
}

// DefaultPaletteName is used when the configured palette is unknown.
const DefaultPaletteName = "tokyonight"

var (
	paletteMu      sync.RWMutex
	currentPalette = palettes[DefaultPaletteName]
)

// CurrentPalette returns the active palette.
func CurrentPalette() Palette {
	paletteMu.RLock()
	defer paletteMu.RUnlock()
	return currentPalette
}

// SetPalette activates the named palette. Unknown names are ignored and
// reported as false.
func SetPalette(name string) bool {
	p, ok := PaletteByName(name)
	if !ok {
		return false
	}
	paletteMu.Lock()
	currentPalette = p
	paletteMu.Unlock()
	return true
}

// PaletteByName looks up a palette.
func PaletteByName(name string) (Palette, bool) {
	p, ok := palettes[name]
	return p, ok
}

// PaletteNames returns the known palette names, sorted.
func PaletteNames() []string {
	names := make([]string, 0, len(palettes))
	for name := range palettes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
