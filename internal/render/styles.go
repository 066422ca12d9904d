package render

import "os"

// Glamour standard style names.
const (
	StyleDark    = "dark"
	StyleLight   = "light"
	StyleDracula = "dracula"
	StyleNoTTY   = "notty"
	StyleASCII   = "ascii"
)

// StyleInfo describes a markdown style for display purposes.
type StyleInfo struct {
	Name        string
	Description string
}

// AvailableStyles lists the glamour styles accepted by the style option.
func AvailableStyles() []StyleInfo {
	return []StyleInfo{
		{Name: StyleDark, Description: "Dark theme (default)"},
		{Name: StyleLight, Description: "Light theme for bright terminals"},
		{Name: StyleDracula, Description: "Dracula color scheme"},
		{Name: StyleNoTTY, Description: "Plain text (no styling)"},
		{Name: StyleASCII, Description: "ASCII-only output"},
	}
}

// IsStandardStyle reports whether style names one of the built-in styles.
func IsStandardStyle(style string) bool {
	switch style {
	case StyleDark, StyleLight, StyleDracula, StyleNoTTY, StyleASCII:
		return true
	default:
		return false
	}
}

// ValidStyle reports whether style is a standard style or an existing file.
func ValidStyle(style string) bool {
	if IsStandardStyle(style) {
		return true
	}
	info, err := os.Stat(style)
	return err == nil && !info.IsDir()
}
