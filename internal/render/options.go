// Package render provides markdown rendering utilities for terminal output.
package render

import (
	"os"

	"github.com/diogo/streamchat/internal/config"
)

// EnvStyle overrides the configured glamour style.
const EnvStyle = "GLAMOUR_STYLE"

// Options configures the markdown renderer behavior.
type Options struct {
	// Width defines the maximum output width (default: 80)
	Width int

	// Style is a glamour standard style name or a path to a JSON style file
	Style string

	// EnableEmoji converts :emoji: to unicode characters
	EnableEmoji bool

	// PreserveNewLines preserves original line breaks
	PreserveNewLines bool

	// TableWrap enables word wrap in table cells
	TableWrap bool

	// InlineTableLinks renders links inline in tables
	InlineTableLinks bool
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return FromConfig(config.DefaultMarkdownConfig())
}

// FromConfig builds Options from the [markdown] config section. An empty
// style falls back to "dark".
func FromConfig(md config.MarkdownConfig) Options {
	opts := Options{
		Width:            80,
		Style:            md.Style,
		EnableEmoji:      md.EnableEmoji,
		PreserveNewLines: md.PreserveNewLines,
		TableWrap:        md.TableWrap,
		InlineTableLinks: md.InlineTableLinks,
	}
	if opts.Style == "" {
		opts.Style = StyleDark
	}
	return opts
}

// OptionsForConfig returns the options for cfg at the given width.
// GLAMOUR_STYLE takes precedence over the configured style.
func OptionsForConfig(cfg config.Config, width int) Options {
	opts := FromConfig(cfg.Markdown).WithWidth(width)
	if style := os.Getenv(EnvStyle); style != "" {
		opts.Style = style
	}
	return opts
}

// WithWidth returns Options with the specified width. Non-positive widths
// keep the current value.
func (o Options) WithWidth(width int) Options {
	if width > 0 {
		o.Width = width
	}
	return o
}

// WithStyle returns Options with the specified style.
func (o Options) WithStyle(style string) Options {
	o.Style = style
	return o
}

// WithEmoji returns Options with emoji support enabled/disabled.
func (o Options) WithEmoji(enabled bool) Options {
	o.EnableEmoji = enabled
	return o
}

// WithPreserveNewLines returns Options with newline preservation enabled/disabled.
func (o Options) WithPreserveNewLines(enabled bool) Options {
	o.PreserveNewLines = enabled
	return o
}

// WithTableWrap returns Options with table wrap enabled/disabled.
func (o Options) WithTableWrap(enabled bool) Options {
	o.TableWrap = enabled
	return o
}
