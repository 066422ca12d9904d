package commands

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/diogo/streamchat/internal/api"
	"github.com/diogo/streamchat/internal/config"
	"github.com/diogo/streamchat/internal/render"
)

func TestChatCommand_LaunchesTUI(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())

	if err := env.run("chat", "-m", "gpt-4-turbo", "--api-url", "http://chat-host:8000"); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !env.tui.called {
		t.Fatal("TUI was not started")
	}
	if env.tui.opts.APIURL != "http://chat-host:8000" {
		t.Errorf("APIURL = %q", env.tui.opts.APIURL)
	}
	if env.tui.opts.Context == nil || env.tui.opts.Logger == nil || env.tui.opts.Clipboard == nil {
		t.Error("TUI options should carry a context, logger and clipboard")
	}
	if env.tui.opts.Render.Style != render.StyleNoTTY {
		t.Errorf("Render.Style = %q, want the %s override", env.tui.opts.Render.Style, render.EnvStyle)
	}
	if got := env.tui.ctrl.Settings().Model; got != "gpt-4-turbo" {
		t.Errorf("controller model = %q", got)
	}
	if !env.released {
		t.Error("backend was not released after the TUI exited")
	}

	logPath, err := config.GetLogPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func TestChatCommand_UsesConfiguredTheme(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())
	t.Cleanup(func() { render.SetPalette(render.DefaultPaletteName) })

	cfg := config.DefaultConfig()
	cfg.TUITheme = "dracula"
	cfg.SystemMessage = "Be brief."
	if err := config.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	if err := env.run("chat"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := render.CurrentPalette().Name; got != "dracula" {
		t.Errorf("palette = %q, want dracula", got)
	}
	if got := env.tui.ctrl.Settings().SystemMessage; got != "Be brief." {
		t.Errorf("system message = %q", got)
	}
}

func TestChatCommand_RejectsArgs(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())
	if err := env.run("chat", "hello"); err == nil {
		t.Error("chat should reject positional arguments")
	}
	if env.tui.called {
		t.Error("TUI should not start on bad arguments")
	}
}

func TestChatCommand_TUIError(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())
	env.tui.err = errors.New("no tty")

	if err := env.run("chat"); err == nil || err.Error() != "no tty" {
		t.Errorf("err = %v", err)
	}
}

func TestChatCommand_InvalidConfig(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())
	dir, err := config.EnsureConfigDir()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not = [valid"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := env.run("chat"); err == nil {
		t.Error("expected an error for an unparsable config file")
	}
}
