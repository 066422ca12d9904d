package render

import "strings"

// Markdown renders markdown content for terminal display using a pooled renderer.
func Markdown(content string, opts Options) (string, error) {
	renderer, err := globalPool.get(opts)
	if err != nil {
		return "", err
	}
	defer globalPool.put(opts, renderer)

	return renderer.Render(content)
}

// MarkdownWithWidth renders with default options at the given width.
func MarkdownWithWidth(content string, width int) (string, error) {
	return Markdown(content, DefaultOptions().WithWidth(width))
}

// Reply renders an assistant reply. Partial replies arrive mid-stream with
// unbalanced markup, so rendering failures fall back to the raw text.
// Surrounding blank lines added by glamour are trimmed.
func Reply(content string, opts Options) string {
	if strings.TrimSpace(content) == "" {
		return content
	}
	out, err := Markdown(content, opts)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
