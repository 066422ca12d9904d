package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/streamchat/internal/config"
	"github.com/diogo/streamchat/internal/render"
)

func newConfigCmd(deps *Dependencies) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the configuration file and effective settings",
		Long: `Print the configuration file path and the settings in effect after
applying defaults, .env files and environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(deps)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(deps, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing configuration file")

	cmd.AddCommand(initCmd)
	return cmd
}

func showConfig(deps *Dependencies) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}

	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	status := "not found, using defaults"
	if _, err := os.Stat(path); err == nil {
		status = "loaded"
	}

	w := tabwriter.NewWriter(deps.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "config file\t%s (%s)\n", path, status)
	fmt.Fprintf(w, "api_url\t%s\n", config.ResolveAPIURL("", cfg))
	fmt.Fprintf(w, "default_model\t%s\n", resolveModel("", cfg))
	fmt.Fprintf(w, "system_message\t%q\n", cfg.SystemMessage)
	fmt.Fprintf(w, "timeout_seconds\t%d\n", cfg.TimeoutSeconds)
	fmt.Fprintf(w, "verbose\t%t\n", cfg.Verbose)
	fmt.Fprintf(w, "copy_to_clipboard\t%t\n", cfg.CopyToClipboard)
	fmt.Fprintf(w, "tui_theme\t%s\n", cfg.TUITheme)
	fmt.Fprintf(w, "markdown.style\t%s\n", cfg.Markdown.Style)
	fmt.Fprintf(w, "markdown.enable_emoji\t%t\n", cfg.Markdown.EnableEmoji)
	fmt.Fprintf(w, "markdown.preserve_newlines\t%t\n", cfg.Markdown.PreserveNewLines)
	fmt.Fprintf(w, "markdown.table_wrap\t%t\n", cfg.Markdown.TableWrap)
	fmt.Fprintf(w, "markdown.inline_table_links\t%t\n", cfg.Markdown.InlineTableLinks)
	if err := w.Flush(); err != nil {
		return err
	}

	var styles []string
	for _, s := range render.AvailableStyles() {
		styles = append(styles, s.Name)
	}
	fmt.Fprintf(deps.Stdout, "\nmarkdown styles: %s (or a path to a JSON style)\n", strings.Join(styles, ", "))
	fmt.Fprintf(deps.Stdout, "tui themes: %s\n", strings.Join(render.PaletteNames(), ", "))

	if !render.ValidStyle(cfg.Markdown.Style) {
		fmt.Fprintf(deps.Stdout, "warning: markdown.style %q is neither a known style nor a file\n", cfg.Markdown.Style)
	}
	if _, ok := render.PaletteByName(cfg.TUITheme); !ok {
		fmt.Fprintf(deps.Stdout, "warning: tui_theme %q is unknown, %s is used\n", cfg.TUITheme, render.DefaultPaletteName)
	}
	return nil
}

func initConfig(deps *Dependencies, force bool) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to check config file: %w", err)
		}
	}

	if err := config.SaveConfig(config.DefaultConfig()); err != nil {
		return err
	}

	fmt.Fprintf(deps.Stdout, "Wrote default configuration to %s\n", path)
	return nil
}
