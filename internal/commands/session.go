package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/streamchat/internal/chat"
	"github.com/diogo/streamchat/internal/config"
)

// session is the effective configuration of one command invocation.
type session struct {
	cfg      config.Config
	apiURL   string
	settings chat.Settings
	persona  string
	verbose  bool
}

// loadSession merges .env, the config file, personas and the command line.
// Flags win.
func loadSession(cmd *cobra.Command, opts *rootOptions) (session, error) {
	if err := config.LoadDotEnv(); err != nil {
		return session{}, err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return session{}, fmt.Errorf("failed to load config: %w", err)
	}

	persona, err := activePersona(cmd, opts, cfg)
	if err != nil {
		return session{}, err
	}

	model := resolveModel(opts.model, cfg)
	if strings.TrimSpace(opts.model) == "" && persona.Model != "" {
		model = persona.Model
	}

	system := persona.SystemMessage
	if flagChanged(cmd, "system") {
		system = opts.system
	} else if opts.persona == "" && cfg.SystemMessage != "" {
		system = cfg.SystemMessage
	}

	return session{
		cfg:    cfg,
		apiURL: config.ResolveAPIURL(opts.apiURL, cfg),
		settings: chat.Settings{
			Model:         model,
			SystemMessage: system,
		},
		persona: persona.Name,
		verbose: opts.verbose || cfg.Verbose,
	}, nil
}

// activePersona returns the persona named by --persona, or the default
// persona when neither --system nor the config file sets a system message.
func activePersona(cmd *cobra.Command, opts *rootOptions, cfg config.Config) (config.Persona, error) {
	if opts.persona != "" {
		p, err := config.GetPersona(opts.persona)
		if err != nil {
			return config.Persona{}, fmt.Errorf("failed to load persona: %w", err)
		}
		return p, nil
	}
	if flagChanged(cmd, "system") || cfg.SystemMessage != "" {
		return config.Persona{}, nil
	}
	p, err := config.GetDefaultPersona()
	if err != nil {
		return config.Persona{}, fmt.Errorf("failed to load personas: %w", err)
	}
	return p, nil
}

// resolveModel returns the model to use (from flag or config)
func resolveModel(flagValue string, cfg config.Config) string {
	if m := strings.TrimSpace(flagValue); m != "" {
		return m
	}
	if m := strings.TrimSpace(cfg.DefaultModel); m != "" {
		return m
	}
	return config.DefaultModel
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil {
		return false
	}
	f := cmd.Flags().Lookup(name)
	return f != nil && f.Changed
}
