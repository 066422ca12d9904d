package chat

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExportFormat selects the transcript export encoding.
type ExportFormat string

const (
	FormatMarkdown ExportFormat = "markdown"
	FormatJSON     ExportFormat = "json"
)

// FormatFromPath picks the export format from a file extension.
func FormatFromPath(path string) ExportFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatMarkdown
	}
}

// ExportMarkdown renders turns as a Markdown document.
func ExportMarkdown(turns []Turn, settings Settings, now time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Chat transcript\n\n")
	fmt.Fprintf(&sb, "- **Model:** %s\n", settings.Model)
	if settings.SystemMessage != "" {
		fmt.Fprintf(&sb, "- **System message:** %s\n", settings.SystemMessage)
	}
	fmt.Fprintf(&sb, "- **Exported:** %s\n", now.Format("2006-01-02 15:04"))
	sb.WriteString("\n---\n\n")

	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			sb.WriteString("## You\n\n")
		default:
			sb.WriteString("## Assistant\n\n")
		}
		sb.WriteString(strings.TrimRight(t.Content, "\n"))
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// ExportJSON renders turns as an indented JSON array of {role, content}.
func ExportJSON(turns []Turn) ([]byte, error) {
	if turns == nil {
		turns = []Turn{}
	}
	data, err := json.MarshalIndent(turns, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	return data, nil
}

// WriteTranscript writes turns to path in the format implied by its extension.
func WriteTranscript(path string, turns []Turn, settings Settings) error {
	var data []byte
	switch FormatFromPath(path) {
	case FormatJSON:
		b, err := ExportJSON(turns)
		if err != nil {
			return err
		}
		data = b
	default:
		data = []byte(ExportMarkdown(turns, settings, time.Now()))
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write transcript: %w", err)
	}
	return nil
}
