// Package config handles configuration for streamchat.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	// DefaultAPIURL is used when no API base is configured anywhere.
	DefaultAPIURL = "http://localhost:8000"

	// DefaultModel is the first entry of the model menu.
	DefaultModel = "gpt-4.1-mini"

	// Environment variables consulted for the API base, in order.
	EnvAPIURL       = "STREAMCHAT_API_URL"
	EnvAPIURLLegacy = "API_URL"

	// EnvHome overrides the configuration directory.
	EnvHome = "STREAMCHAT_HOME"

	configFileName = "config.toml"
	logFileName    = "streamchat.log"
)

// MarkdownConfig configures markdown rendering options
type MarkdownConfig struct {
	Style            string `toml:"style"`              // "dark", "light", "dracula", "notty" or path to JSON theme
	EnableEmoji      bool   `toml:"enable_emoji"`       // Convert :emoji: to unicode
	PreserveNewLines bool   `toml:"preserve_newlines"`  // Preserve original line breaks
	TableWrap        bool   `toml:"table_wrap"`         // Enable word wrap in table cells
	InlineTableLinks bool   `toml:"inline_table_links"` // Render links inline in tables
}

// Config represents the user configuration
type Config struct {
	// APIURL is the base URL of the completion backend.
	APIURL       string `toml:"api_url"`
	DefaultModel string `toml:"default_model"`
	// SystemMessage is the developer message used when none is given on the
	// command line. Empty means the backend default prompt.
	SystemMessage string `toml:"system_message"`
	// TimeoutSeconds bounds the wait for response headers. The streamed body
	// is never bounded. Zero disables the timeout.
	TimeoutSeconds int `toml:"timeout_seconds"`
	// Verbose enables debug logging.
	Verbose         bool           `toml:"verbose"`
	CopyToClipboard bool           `toml:"copy_to_clipboard"`
	TUITheme        string         `toml:"tui_theme"`
	Markdown        MarkdownConfig `toml:"markdown"`
}

// DefaultMarkdownConfig returns the default markdown configuration
func DefaultMarkdownConfig() MarkdownConfig {
	return MarkdownConfig{
		Style:            "dark",
		EnableEmoji:      true,
		PreserveNewLines: true,
		TableWrap:        true,
		InlineTableLinks: false,
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		APIURL:          DefaultAPIURL,
		DefaultModel:    DefaultModel,
		TimeoutSeconds:  300,
		Verbose:         false,
		CopyToClipboard: false,
		TUITheme:        "tokyonight",
		Markdown:        DefaultMarkdownConfig(),
	}
}

// GetConfigDir returns the configuration directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".streamchat"), nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist
func EnsureConfigDir() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFileName), nil
}

// GetLogPath returns the path of the log file used while the TUI owns the terminal.
func GetLogPath() (string, error) {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, logFileName), nil
}

// LoadConfig loads the configuration from disk
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	configPath, err := GetConfigPath()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}

	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to disk
func SaveConfig(cfg Config) error {
	configDir, err := EnsureConfigDir()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	configPath := filepath.Join(configDir, configFileName)
	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads KEY=value pairs from the given .env files into the
// process environment. Missing files are ignored and variables already set
// in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ResolveAPIURL picks the API base: explicit flag, then environment, then the
// config file, then DefaultAPIURL. Trailing slashes are removed.
func ResolveAPIURL(flagValue string, cfg Config) string {
	candidates := []string{
		flagValue,
		os.Getenv(EnvAPIURL),
		os.Getenv(EnvAPIURLLegacy),
		cfg.APIURL,
	}
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return strings.TrimRight(c, "/")
		}
	}
	return DefaultAPIURL
}

// AvailableModels returns the model menu offered to the user. Requests are not
// validated against it.
func AvailableModels() []string {
	return []string{
		"gpt-4.1-mini",
		"gpt-4",
		"gpt-4-turbo",
		"gpt-3.5-turbo",
	}
}

// NextModel returns the model after current in the menu, wrapping around.
// Unknown models restart at the first entry.
func NextModel(current string) string {
	models := AvailableModels()
	for i, m := range models {
		if m == current {
			return models[(i+1)%len(models)]
		}
	}
	return models[0]
}
