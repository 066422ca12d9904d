package render

import (
	"strings"
	"testing"

	"github.com/diogo/streamchat/internal/config"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 {
		t.Errorf("Width = %d, want 80", opts.Width)
	}
	if opts.Style != StyleDark {
		t.Errorf("Style = %q, want %q", opts.Style, StyleDark)
	}
	if !opts.EnableEmoji || !opts.PreserveNewLines || !opts.TableWrap {
		t.Errorf("unexpected defaults: %+v", opts)
	}
	if opts.InlineTableLinks {
		t.Error("InlineTableLinks should default to false")
	}
}

func TestFromConfig(t *testing.T) {
	md := config.MarkdownConfig{Style: StyleLight, TableWrap: true}
	opts := FromConfig(md)

	if opts.Style != StyleLight || opts.EnableEmoji || !opts.TableWrap {
		t.Errorf("FromConfig() = %+v", opts)
	}

	if got := FromConfig(config.MarkdownConfig{}).Style; got != StyleDark {
		t.Errorf("empty style should fall back to dark, got %q", got)
	}
}

func TestOptionsForConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Markdown.Style = StyleDracula

	t.Setenv(EnvStyle, "")
	opts := OptionsForConfig(cfg, 120)
	if opts.Width != 120 || opts.Style != StyleDracula {
		t.Errorf("OptionsForConfig() = %+v", opts)
	}

	t.Setenv(EnvStyle, StyleNoTTY)
	if got := OptionsForConfig(cfg, 0); got.Style != StyleNoTTY || got.Width != 80 {
		t.Errorf("env override: %+v", got)
	}
}

func TestOptionsChaining(t *testing.T) {
	opts := DefaultOptions().
		WithWidth(100).
		WithStyle(StyleLight).
		WithEmoji(false).
		WithPreserveNewLines(false).
		WithTableWrap(false)

	want := Options{Width: 100, Style: StyleLight}
	if opts != want {
		t.Errorf("got %+v, want %+v", opts, want)
	}

	if DefaultOptions().WithWidth(-5).Width != 80 {
		t.Error("non-positive width should be ignored")
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		contains string
	}{
		{"heading", "# Hello World", 80, "Hello"},
		{"bold", "This is **bold** text", 80, "bold"},
		{"code block", "```go\nfmt.Println(\"hi\")\n```", 80, "Println"},
		{"table", "| A | B |\n|---|---|\n| 1 | 2 |", 80, "A"},
		{"narrow", "# Long heading that should wrap", 40, "Long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Markdown(tt.input, DefaultOptions().WithWidth(tt.width))
			if err != nil {
				t.Fatalf("Markdown() error = %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output should contain %q, got: %s", tt.contains, out)
			}
		})
	}
}

func TestMarkdownEmoji(t *testing.T) {
	input := "Hello :smile: world"

	out, err := Markdown(input, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, ":smile:") {
		t.Errorf("emoji should be converted, got: %s", out)
	}

	out, err = Markdown(input, DefaultOptions().WithEmoji(false))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, ":smile:") {
		t.Errorf("emoji should be kept, got: %s", out)
	}
}

func TestMarkdownWithWidth(t *testing.T) {
	out, err := MarkdownWithWidth("# Hello\n\nThis is a test.", 60)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "test") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestReply(t *testing.T) {
	opts := DefaultOptions().WithStyle(StyleNoTTY)

	if got := Reply("", opts); got != "" {
		t.Errorf("Reply(\"\") = %q", got)
	}

	// unbalanced markup from a partial reply still renders
	got := Reply("Here is some **bol", opts)
	if !strings.Contains(got, "Here is some") {
		t.Errorf("Reply() = %q", got)
	}
	if strings.HasPrefix(got, "\n") || strings.HasSuffix(got, "\n") {
		t.Errorf("Reply() should trim blank lines, got %q", got)
	}

	// a broken style falls back to raw text
	if got := Reply("plain *text*", opts.WithStyle("no/such/style.json")); got != "plain *text*" {
		t.Errorf("fallback = %q", got)
	}
}

func TestStyles(t *testing.T) {
	for _, s := range AvailableStyles() {
		if !IsStandardStyle(s.Name) || !ValidStyle(s.Name) {
			t.Errorf("%s should be a standard style", s.Name)
		}
		if s.Description == "" {
			t.Errorf("%s has no description", s.Name)
		}
	}
	if IsStandardStyle("tokyonight") {
		t.Error("palette names are not markdown styles")
	}
	if ValidStyle(t.TempDir()) {
		t.Error("a directory is not a valid style")
	}
}

func TestPalettes(t *testing.T) {
	names := PaletteNames()
	if len(names) != 3 {
		t.Fatalf("PaletteNames() = %v", names)
	}
	for _, name := range names {
		p, ok := PaletteByName(name)
		if !ok || p.Name != name {
			t.Errorf("PaletteByName(%q) = %+v, %v", name, p, ok)
		}
		if p.Primary == "" || p.Error == "" || p.Text == "" {
			t.Errorf("palette %s has empty colors", name)
		}
	}

	defer SetPalette(DefaultPaletteName)

	if !SetPalette("dracula") || CurrentPalette().Name != "dracula" {
		t.Error("SetPalette(dracula) did not apply")
	}
	if SetPalette("nope") {
		t.Error("unknown palette should be rejected")
	}
	if CurrentPalette().Name != "dracula" {
		t.Error("rejected palette changed the current one")
	}
}
