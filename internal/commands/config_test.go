package commands

import (
	"os"
	"strings"
	"testing"

	"github.com/diogo/streamchat/internal/api"
	"github.com/diogo/streamchat/internal/config"
)

func TestConfigCommand_ShowsDefaults(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())

	if err := env.run("config"); err != nil {
		t.Fatalf("run: %v", err)
	}

	out := env.stdout.String()
	for _, want := range []string{
		"not found, using defaults",
		"http://localhost:8000",
		config.DefaultModel,
		"tui_theme",
		"markdown.style",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigCommand_EnvironmentOverride(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())
	t.Setenv(config.EnvAPIURLLegacy, "http://legacy:7000")

	if err := env.run("config"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "http://legacy:7000") {
		t.Errorf("output = %s", env.stdout.String())
	}
}

func TestConfigInit(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())

	if err := env.run("config", "init"); err != nil {
		t.Fatalf("init: %v", err)
	}

	path, err := config.GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(env.stdout.String(), path) {
		t.Errorf("output should name the file: %s", env.stdout.String())
	}

	if err := env.run("config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}
	if err := env.run("config", "init", "--force"); err != nil {
		t.Errorf("init --force: %v", err)
	}

	if err := env.run("config"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(env.stdout.String(), "(loaded)") {
		t.Errorf("config should report the file as loaded: %s", env.stdout.String())
	}
}

func TestModelsCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"default", []string{"models"}, "* gpt-4.1-mini"},
		{"menu entry", []string{"models", "-m", "gpt-4"}, "* gpt-4\n"},
		{"custom", []string{"models", "-m", "local-llama"}, "* local-llama (custom)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, api.NewMockChatClient())
			if err := env.run(tt.args...); err != nil {
				t.Fatalf("run: %v", err)
			}
			out := env.stdout.String()
			if !strings.Contains(out, tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
			for _, m := range config.AvailableModels() {
				if !strings.Contains(out, m) {
					t.Errorf("output missing model %q", m)
				}
			}
		})
	}
}

func TestConfigCommand_WarnsAboutInvalidValues(t *testing.T) {
	env := newTestEnv(t, api.NewMockChatClient())

	cfg := config.DefaultConfig()
	cfg.Markdown.Style = "/no/such/style.json"
	cfg.TUITheme = "neon"
	if err := config.SaveConfig(cfg); err != nil {
		t.Fatal(err)
	}

	if err := env.run("config"); err != nil {
		t.Fatalf("run: %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"tui themes:", "warning: markdown.style", `warning: tui_theme "neon"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
